package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mogaika/skelanim/errkind"
	"github.com/mogaika/skelanim/webutils"
)

const (
	defaultPlayFps = 30
	maxPlayFps     = 120
	playWriteWait  = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandlerWSModelPlay plays an animation on a fresh entity and sends a
// PoseInfo every tick (?fps=, default 30) until the client goes away or a
// non looping animation finishes.
func (srv *Server) HandlerWSModelPlay(w http.ResponseWriter, r *http.Request) {
	m, err := srv.requestModel(r)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	animation := mux.Vars(r)["animation"]
	if _, ok := m.Table.AnimationByName(animation); !ok {
		webutils.WriteError(w, errkind.New(errkind.Lookup, "model %q has no animation %q", m.Name, animation))
		return
	}
	fps := defaultPlayFps
	if q := r.URL.Query().Get("fps"); q != "" {
		if fps, err = strconv.Atoi(q); err != nil || fps <= 0 || fps > maxPlayFps {
			webutils.WriteError(w, errkind.New(errkind.Parse, "fps %q not in [1,%d]", q, maxPlayFps))
			return
		}
	}
	e, err := srv.store.NewEntity(m.Name)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("[web] ws upgrade")
		return
	}
	defer conn.Close()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	cache := srv.store.NewCache()
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()
	start := time.Now()
	e.Switch(animation, 0)

	for {
		select {
		case <-gone:
			return
		case t := <-ticker.C:
			now := t.Sub(start).Milliseconds()
			cache.Clear()
			world, err := e.Update(now, cache)
			conn.SetWriteDeadline(time.Now().Add(playWriteWait))
			if err != nil {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseInternalServerErr, err.Error()))
				return
			}
			info := poseInfo(e, animation, now, world)
			if err := conn.WriteJSON(info); err != nil {
				return
			}
			if info.Finished {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "finished"))
				return
			}
		}
	}
}
