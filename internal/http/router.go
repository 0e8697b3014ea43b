package httpapi

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// PatientsPrefix 患者导诊接口前缀
const PatientsPrefix = "/guide/api/v1/patients/"

// Router 基于标准库 http.ServeMux
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterOpsRoutes 健康检查与 Prometheus 指标
func (r *Router) RegisterOpsRoutes() {
	r.Handle("/health", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "ok"}))
	})
	r.HandleHandler("/metrics", promhttp.Handler())
}

// RegisterGuideRoutes 注册患者导诊路由
// /guide/api/v1/patients/{patient_id}/{journey|route|location|scan|explore|route-to}
func (r *Router) RegisterGuideRoutes(h *GuideHandler) {
	r.Handle(PatientsPrefix, func(w http.ResponseWriter, req *http.Request) {
		patientID, action, ok := splitPatientPath(req.URL.Path)
		if !ok {
			writeJSON(w, http.StatusNotFound, Fail("not found"))
			return
		}

		type endpoint struct {
			method  string
			handler func(http.ResponseWriter, *http.Request, string)
		}
		endpoints := map[string]endpoint{
			"journey":  {http.MethodGet, h.GetJourney},
			"route":    {http.MethodGet, h.GetRoute},
			"location": {http.MethodGet, h.GetLocation},
			"scan":     {http.MethodPost, h.PostScan},
			"explore":  {http.MethodPost, h.PostExplore},
			"route-to": {http.MethodPost, h.PostRouteTo},
		}
		ep, found := endpoints[action]
		if !found {
			writeJSON(w, http.StatusNotFound, Fail("not found"))
			return
		}
		if req.Method != ep.method {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		ep.handler(w, req, patientID)
	})
}

// splitPatientPath 解析 {patient_id}/{action}
func splitPatientPath(path string) (patientID, action string, ok bool) {
	rest := strings.Trim(strings.TrimPrefix(path, PatientsPrefix), "/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
