package gpio

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/pkg/errors"

	"kioskd/supervisor"
)

// Server is the web control panel over a pin bank.
type Server struct {
	bank *Bank
	j    supervisor.Journaler
}

// NewServer creates the control panel server.
func NewServer(bank *Bank, j supervisor.Journaler) *Server {
	return &Server{bank: bank, j: j}
}

// Handler returns the panel's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.index)
	mux.HandleFunc("GET /pins", s.listPins)
	mux.HandleFunc("POST /pins/{pin}", s.setPin)

	return mux
}

// ListenAndServe serves the panel until the context is canceled.
func (s *Server) ListenAndServe(ctx context.Context, bind string) error {
	srv := &http.Server{Addr: bind, Handler: s.Handler()}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "gpio server failed")
	}

	return nil
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}

func (s *Server) listPins(w http.ResponseWriter, r *http.Request) {
	states, err := s.bank.States()
	if err != nil {
		s.j.Write(&supervisor.EventWarning{Component: "gpio", Error: err.Error()})
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(states)
}

func (s *Server) setPin(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(r.PathValue("pin"))
	if err != nil {
		http.Error(w, "bad pin number", http.StatusBadRequest)
		return
	}

	var body struct {
		Value int `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}

	switch err := s.bank.Write(number, body.Value); {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)

	case errors.Is(err, ErrUnknownPin):
		http.Error(w, err.Error(), http.StatusNotFound)

	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

const indexHTML = `<!DOCTYPE html>
<html>
<head><title>kioskd pins</title></head>
<body>
<h1>kioskd GPIO panel</h1>
<table id="pins"></table>
<script>
async function refresh() {
	const pins = await (await fetch('/pins')).json();
	const table = document.getElementById('pins');
	table.innerHTML = '';
	for (const pin of pins) {
		const row = table.insertRow();
		row.insertCell().textContent = pin.number;
		row.insertCell().textContent = pin.label || '';
		row.insertCell().textContent = pin.value;
		if (pin.direction === 'out') {
			const btn = document.createElement('button');
			btn.textContent = 'toggle';
			btn.onclick = async () => {
				await fetch('/pins/' + pin.number, {
					method: 'POST',
					body: JSON.stringify({value: pin.value ? 0 : 1}),
				});
				refresh();
			};
			row.insertCell().appendChild(btn);
		}
	}
}
refresh();
setInterval(refresh, 2000);
</script>
</body>
</html>
`
