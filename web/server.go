package web

import (
	"net/http"
	"os"
	"path"
	"sync"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/mogaika/skelanim/status"
	"github.com/mogaika/skelanim/store"
)

// Server serves the models of one store. Pose requests borrow caches sized
// by that store's cache config.
type Server struct {
	store  *store.Store
	caches sync.Pool
}

func NewServer(s *store.Store) *Server {
	srv := &Server{store: s}
	srv.caches.New = func() interface{} {
		return s.NewCache()
	}
	return srv
}

func (srv *Server) Store() *store.Store {
	return srv.store
}

func NewRouter(srv *Server, webPath string) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/json/models", srv.HandlerAjaxModels).Methods("GET")
	r.HandleFunc("/json/model/{model}", srv.HandlerAjaxModel).Methods("GET")
	r.HandleFunc("/json/model/{model}/script", srv.HandlerAjaxModelScript).Methods("GET")
	r.HandleFunc("/json/model/{model}/pose/{animation}/{time:[0-9]+}", srv.HandlerAjaxModelPose).Methods("GET")
	r.HandleFunc("/gltf/model/{model}", srv.HandlerGLTFModel).Methods("GET")
	r.HandleFunc("/gltf/model/{model}/pose/{animation}/{time:[0-9]+}", srv.HandlerGLTFModelPose).Methods("GET")
	r.HandleFunc("/fbx/model/{model}", srv.HandlerFbxModel).Methods("GET")
	r.HandleFunc("/dump/model/{model}", srv.HandlerDumpModel).Methods("GET")
	r.HandleFunc("/upload/model/{model}", srv.HandlerUploadModel).Methods("POST")
	r.HandleFunc("/ws/status", status.ServeWS)
	r.HandleFunc("/ws/model/{model}/play/{animation}", srv.HandlerWSModelPlay)

	if webPath != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(path.Join(webPath, "data"))))
	}
	return r
}

func StartServer(addr string, s *store.Store, webPath string) error {
	var h http.Handler = NewRouter(NewServer(s), webPath)
	h = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(h)
	h = handlers.LoggingHandler(os.Stdout, h)

	log.Info().Str("addr", addr).Int("models", len(s.Models())).Msg("[web] Starting server")

	return http.ListenAndServe(addr, h)
}
