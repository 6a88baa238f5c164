package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdlog "log"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	sse "github.com/alexandrevicenzi/go-sse"
	"github.com/gorilla/mux"
	"github.com/mastercactapus/hpglaser/config"
	"github.com/mastercactapus/hpglaser/hpgl"
	"github.com/mastercactapus/hpglaser/job"
	"github.com/mastercactapus/hpglaser/machine"
	"github.com/mastercactapus/hpglaser/preview"
	"github.com/rs/zerolog"
)

const (
	defaultTestFire = time.Second
	maxTestFire     = 10 * time.Second
)

type api struct {
	http.Handler
	m        *machine.Machine
	dataDir  string
	workArea config.WorkAreaConfig
	sse      *sse.Server
	log      zerolog.Logger

	// jobs outlive the request that started them
	ctx context.Context
}

func newAPI(ctx context.Context, m *machine.Machine, cfg *config.Config, log zerolog.Logger) *api {
	r := mux.NewRouter()

	a := &api{
		Handler:  r,
		m:        m,
		dataDir:  cfg.Server.DataDir,
		workArea: cfg.WorkArea,
		log:      log,
		ctx:      ctx,
		sse: sse.NewServer(&sse.Options{
			Logger: stdlog.New(log.Level(zerolog.WarnLevel), "", 0),
		}),
	}

	fs := http.FileServer(http.Dir(a.dataDir))
	r.PathPrefix("/data/").Handler(http.StripPrefix("/data", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case "GET":
			fs.ServeHTTP(w, req)
		case "PUT":
			a.putFile(w, req)
		case "DELETE":
			a.deleteFile(w, req)
		default:
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		}
	})))

	r.HandleFunc("/api/load", a.load).Methods("POST")
	r.HandleFunc("/api/job", a.jobInfo).Methods("GET")
	r.HandleFunc("/api/jobs", a.jobs).Methods("GET")
	r.HandleFunc("/api/job/{action:start|pause|resume|stop}", a.jobAction).Methods("POST")
	r.HandleFunc("/api/test-fire", a.testFire).Methods("POST")
	r.HandleFunc("/api/park", a.park).Methods("POST")
	r.HandleFunc("/api/estop", a.estop).Methods("POST")
	r.HandleFunc("/api/enable", a.enable).Methods("POST")
	r.HandleFunc("/api/status", a.status).Methods("GET")
	r.HandleFunc("/api/preview.png", a.preview).Methods("GET")

	r.PathPrefix("/events/").Handler(a.sse)

	events, cancel := m.Subscribe()
	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case e := <-events:
				a.publish(e)
			}
		}
	}()

	return a
}

// Close disconnects all event stream clients.
func (a *api) Close() { a.sse.Shutdown() }

type eventMessage struct {
	Type  string    `json:"type"`
	Event job.Event `json:"event"`
}

func (a *api) publish(e job.Event) {
	data, err := json.Marshal(eventMessage{Type: job.EventType(e), Event: e})
	if err != nil {
		a.log.Error().Err(err).Msg("marshal event")
		return
	}
	a.sse.SendMessage("/events/job", sse.SimpleMessage(string(data)))
}

func safePath(base, name string) (bool, string) {
	if filepath.Separator != '/' && strings.ContainsRune(name, filepath.Separator) {
		return false, ""
	}
	dir := base
	if dir == "" {
		dir = "."
	}
	return true, filepath.Join(dir, filepath.FromSlash(path.Clean("/"+name)))
}

func (a *api) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		a.log.Error().Err(err).Msg("encode response")
	}
}

func (a *api) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	var pErr *hpgl.ParseError
	switch {
	case errors.Is(err, machine.ErrBusy):
		code = http.StatusConflict
	case errors.Is(err, machine.ErrNoJob), errors.Is(err, job.ErrInvalidState):
		code = http.StatusConflict
	case errors.Is(err, machine.ErrNoCommands), errors.Is(err, hpgl.ErrCannotScale), errors.As(err, &pErr):
		code = http.StatusBadRequest
	case errors.Is(err, os.ErrNotExist):
		code = http.StatusNotFound
	case errors.Is(err, machine.ErrDevice), errors.Is(err, machine.ErrNoReply):
		code = http.StatusBadGateway
	}
	if code == http.StatusInternalServerError {
		a.log.Error().Err(err).Msg("request failed")
	}
	http.Error(w, err.Error(), code)
}

// load parses and transforms a drawing, then swaps it in at once.
// Options come from the query string only; the body is always the drawing.
func (a *api) load(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	var tf transformFlags
	tf.scale = 1
	tf.width, tf.height = a.workArea.Width, a.workArea.Height
	tf.center = q.Get("center") == "1"
	tf.fit = q.Get("fit") == "1"
	if s := q.Get("scale"); s != "" {
		var err error
		tf.scale, err = strconv.ParseFloat(s, 64)
		if err != nil || tf.scale <= 0 {
			http.Error(w, "invalid scale", http.StatusBadRequest)
			return
		}
	}

	body := io.Reader(req.Body)
	if name := q.Get("file"); name != "" {
		ok, fullName := safePath(a.dataDir, name)
		if !ok {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		f, err := os.Open(fullName)
		if err != nil {
			a.writeError(w, err)
			return
		}
		defer f.Close()
		body = f
	}

	res, err := hpgl.ParseReader(body, a.m.Document().Options())
	if err != nil {
		a.writeError(w, err)
		return
	}
	res, err = tf.apply(res, a.log)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.m.Replace(res)
	a.writeJSON(w, newSummary(q.Get("file"), res))
}

func (a *api) jobInfo(w http.ResponseWriter, req *http.Request) {
	j := a.m.Job()
	if j == nil {
		a.writeError(w, machine.ErrNoJob)
		return
	}
	a.writeJSON(w, j.Info())
}

func (a *api) jobs(w http.ResponseWriter, req *http.Request) {
	jobs := a.m.Jobs()
	if jobs == nil {
		jobs = []job.Info{}
	}
	a.writeJSON(w, jobs)
}

func (a *api) jobAction(w http.ResponseWriter, req *http.Request) {
	var err error
	switch mux.Vars(req)["action"] {
	case "start":
		var j *job.Job
		j, err = a.m.Start(a.ctx)
		if err == nil {
			a.writeJSON(w, j.Info())
			return
		}
	case "pause":
		err = a.m.Pause()
	case "resume":
		err = a.m.Resume()
	case "stop":
		err = a.m.Stop()
	}
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, a.m.Job().Info())
}

func (a *api) testFire(w http.ResponseWriter, req *http.Request) {
	power, err := strconv.Atoi(req.FormValue("power"))
	if err != nil || power < 0 || power > hpgl.MaxPower {
		http.Error(w, "power must be 0-255", http.StatusBadRequest)
		return
	}
	d := defaultTestFire
	if ms := req.FormValue("ms"); ms != "" {
		n, err := strconv.Atoi(ms)
		if err != nil || n <= 0 || time.Duration(n)*time.Millisecond > maxTestFire {
			http.Error(w, "ms must be 1-"+strconv.Itoa(int(maxTestFire/time.Millisecond)), http.StatusBadRequest)
			return
		}
		d = time.Duration(n) * time.Millisecond
	}

	err = a.m.TestFire(req.Context(), power, d)
	if err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) park(w http.ResponseWriter, req *http.Request) {
	err := a.m.Park(req.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) estop(w http.ResponseWriter, req *http.Request) {
	err := a.m.EmergencyStop()
	if err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) enable(w http.ResponseWriter, req *http.Request) {
	err := a.m.Enable(req.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statusResponse struct {
	X     int  `json:"x"`
	Y     int  `json:"y"`
	Laser bool `json:"laser"`
	Power int  `json:"power"`
}

func (a *api) status(w http.ResponseWriter, req *http.Request) {
	st, err := a.m.QueryStatus(req.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, statusResponse{X: st.Pos.X, Y: st.Pos.Y, Laser: st.Laser, Power: st.Power})
}

func (a *api) preview(w http.ResponseWriter, req *http.Request) {
	opt := preview.DefaultOptions
	if n, err := strconv.Atoi(req.FormValue("width")); err == nil && n > 0 && n <= 4096 {
		opt.Width = n
	}
	if n, err := strconv.Atoi(req.FormValue("height")); err == nil && n > 0 && n <= 4096 {
		opt.Height = n
	}
	opt.HideTravel = req.FormValue("travel") == "0"

	w.Header().Set("Content-Type", "image/png")
	err := preview.WritePNG(w, a.m.Document().Result(), opt)
	if err != nil {
		a.log.Error().Err(err).Msg("write preview")
	}
}

func (a *api) putFile(w http.ResponseWriter, req *http.Request) {
	ok, name := safePath(a.dataDir, req.URL.Path)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	err := os.MkdirAll(filepath.Dir(name), 0755)
	if err != nil {
		a.writeError(w, err)
		return
	}
	f, err := os.Create(name)
	if err != nil {
		a.log.Error().Err(err).Str("file", name).Msg("create")
		http.Error(w, err.Error(), 500)
		return
	}
	defer f.Close()
	_, err = io.Copy(f, req.Body)
	if err != nil {
		a.log.Error().Err(err).Str("file", name).Msg("write")
		http.Error(w, err.Error(), 500)
		return
	}
}

func (a *api) deleteFile(w http.ResponseWriter, req *http.Request) {
	ok, name := safePath(a.dataDir, req.URL.Path)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	err := os.Remove(name)
	if err != nil {
		a.writeError(w, err)
		return
	}
}
