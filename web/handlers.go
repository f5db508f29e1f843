package web

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/mogaika/skelanim/anim"
	"github.com/mogaika/skelanim/animscript"
	"github.com/mogaika/skelanim/errkind"
	"github.com/mogaika/skelanim/iqm"
	"github.com/mogaika/skelanim/pose"
	"github.com/mogaika/skelanim/skeleton"
	"github.com/mogaika/skelanim/status"
	"github.com/mogaika/skelanim/store"
	"github.com/mogaika/skelanim/utils"
	"github.com/mogaika/skelanim/utils/gltfutils"
	"github.com/mogaika/skelanim/webutils"
)

type ModelSummary struct {
	Name        string
	Joints      int
	Frames      int
	Actions     int
	Animations  int
	ScriptError string `json:",omitempty"`
}

type ModelJoint struct {
	Name     string
	Parent   int
	Children []int `json:",omitempty"`
}

type ModelInfo struct {
	ModelSummary
	Comment    string `json:",omitempty"`
	Meshes     []iqm.Mesh
	Anims      []iqm.Anim
	Joints     []ModelJoint
	RootJoint  int
	HeadJoint  int
	TorsoJoint int
	Tree       string `json:",omitempty"`
	Table      *anim.Table
}

type PoseInfo struct {
	Animation string
	Time      int64
	Frame     int
	OldFrame  int
	BackLerp  float32
	Finished  bool
	Poses     []pose.BonePose
	World     []mgl32.Mat4
}

func summary(m *store.Model) ModelSummary {
	s := ModelSummary{
		Name:       m.Name,
		Joints:     m.Data.NumJoints(),
		Frames:     m.Data.NumFrames(),
		Actions:    len(m.Table.Actions),
		Animations: len(m.Table.Animations),
	}
	if m.ScriptError != nil {
		s.ScriptError = m.ScriptError.Error()
	}
	return s
}

func (srv *Server) requestModel(r *http.Request) (*store.Model, error) {
	name := mux.Vars(r)["model"]
	m, ok := srv.store.Model(name)
	if !ok {
		return nil, errkind.New(errkind.Lookup, "unknown model %q", name)
	}
	return m, nil
}

// requestPose poses a fresh entity of the requested model at the requested
// animation and time.
func (srv *Server) requestPose(r *http.Request) (*store.Entity, *PoseInfo, error) {
	m, err := srv.requestModel(r)
	if err != nil {
		return nil, nil, err
	}
	animation := mux.Vars(r)["animation"]
	now, err := strconv.ParseInt(mux.Vars(r)["time"], 10, 64)
	if err != nil {
		return nil, nil, errkind.New(errkind.Parse, "time %q is not integer", mux.Vars(r)["time"])
	}
	if _, ok := m.Table.AnimationByName(animation); !ok {
		return nil, nil, errkind.New(errkind.Lookup, "model %q has no animation %q", m.Name, animation)
	}

	e, err := srv.store.NewEntity(m.Name)
	if err != nil {
		return nil, nil, err
	}
	e.Switch(animation, 0)

	cache := srv.caches.Get().(*pose.Cache)
	defer srv.caches.Put(cache)
	cache.Clear()

	world, err := e.Update(now, cache)
	if err != nil {
		return nil, nil, err
	}
	return e, poseInfo(e, animation, now, world), nil
}

func poseInfo(e *store.Entity, animation string, now int64, world []mgl32.Mat4) *PoseInfo {
	return &PoseInfo{
		Animation: animation,
		Time:      now,
		Frame:     e.State.Frame,
		OldFrame:  e.State.OldFrame,
		BackLerp:  e.State.BackLerp,
		Finished:  e.State.IsFinished(),
		Poses:     e.Poses(),
		World:     world,
	}
}

func (srv *Server) HandlerAjaxModels(w http.ResponseWriter, r *http.Request) {
	names := srv.store.Models()
	result := make([]ModelSummary, 0, len(names))
	for _, name := range names {
		if m, ok := srv.store.Model(name); ok {
			result = append(result, summary(m))
		}
	}
	webutils.WriteJson(w, result)
}

func (srv *Server) HandlerAjaxModel(w http.ResponseWriter, r *http.Request) {
	m, err := srv.requestModel(r)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}

	info := &ModelInfo{
		ModelSummary: summary(m),
		Comment:      m.Raw.Comment,
		Meshes:       m.Raw.Meshes,
		Anims:        m.Raw.Anims,
		Joints:       make([]ModelJoint, len(m.Data.Joints)),
		RootJoint:    m.Data.RootJoint,
		HeadJoint:    m.Data.HeadJoint,
		TorsoJoint:   m.Data.TorsoJoint,
		Table:        m.Table,
	}
	for i, j := range m.Data.Joints {
		info.Joints[i] = ModelJoint{Name: j.Name, Parent: j.Parent}
	}
	if tree, err := skeleton.BuildTree(m.Data); err == nil {
		info.Tree = tree.String()
		for i := range info.Joints {
			if node := tree.Node(i); node != nil {
				info.Joints[i].Children = node.Children
			}
		}
	} else {
		log.Debug().Str("model", m.Name).Err(err).Msg("no bone tree")
	}
	webutils.WriteJson(w, info)
}

// HandlerAjaxModelScript returns the parsed script as yaml with
// ?format=yaml, as script text otherwise.
func (srv *Server) HandlerAjaxModelScript(w http.ResponseWriter, r *http.Request) {
	m, err := srv.requestModel(r)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	if m.Script == nil {
		webutils.WriteError(w, errkind.New(errkind.Lookup, "model %q has no script", m.Name))
		return
	}

	switch r.URL.Query().Get("format") {
	case "yaml":
		webutils.WriteYaml(w, m.Script)
	default:
		var buf bytes.Buffer
		if err := animscript.Render(&buf, m.Script); err != nil {
			webutils.WriteError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		webutils.WriteResult(w, buf.Bytes())
	}
}

func (srv *Server) HandlerAjaxModelPose(w http.ResponseWriter, r *http.Request) {
	_, info, err := srv.requestPose(r)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteJson(w, info)
}

func (srv *Server) HandlerGLTFModel(w http.ResponseWriter, r *http.Request) {
	m, err := srv.requestModel(r)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	doc, err := m.ExportGLTFDefault()
	if err != nil {
		webutils.WriteError(w, errors.Wrapf(err, "Failed to export %q", m.Name))
		return
	}
	var buf bytes.Buffer
	if err := gltfutils.ExportBinary(&buf, doc); err != nil {
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteFile(w, &buf, m.Name+".glb")
}

func (srv *Server) HandlerGLTFModelPose(w http.ResponseWriter, r *http.Request) {
	e, info, err := srv.requestPose(r)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	doc := gltfutils.NewDocument()
	if _, err := e.ExportGLTF(doc); err != nil {
		webutils.WriteError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := gltfutils.ExportBinary(&buf, doc); err != nil {
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteFile(w, &buf, e.Model.Name+"_"+info.Animation+"_"+strconv.FormatInt(info.Time, 10)+".glb")
}

// HandlerFbxModel sends a zip with the skeleton as fbx and the script as
// text, when the model has one.
func (srv *Server) HandlerFbxModel(w http.ResponseWriter, r *http.Request) {
	m, err := srv.requestModel(r)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	f, err := m.ExportFbxDefault()
	if err != nil {
		webutils.WriteError(w, errors.Wrapf(err, "Failed to export %q", m.Name))
		return
	}
	if m.Script != nil {
		var script bytes.Buffer
		if err := animscript.Render(&script, m.Script); err != nil {
			webutils.WriteError(w, err)
			return
		}
		f.AddExportFile(m.Name+store.ScriptExt, script.Bytes())
	}

	var buf bytes.Buffer
	if err := f.WriteZip(&buf, m.Name+".fbx"); err != nil {
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteFile(w, &buf, m.Name+".zip")
}

func (srv *Server) HandlerDumpModel(w http.ResponseWriter, r *http.Request) {
	m, err := srv.requestModel(r)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	utils.Fdump(w, struct {
		Meshes       []iqm.Mesh
		VertexArrays []iqm.VertexArray
		Joints       []iqm.Joint
		Poses        []iqm.Pose
		Anims        []iqm.Anim
		Bounds       int
		Table        *anim.Table
	}{m.Raw.Meshes, m.Raw.VertexArrays, m.Raw.Joints, m.Raw.Poses, m.Raw.Anims, len(m.Raw.Bounds), m.Table})
}

// HandlerUploadModel loads the form files "iqm" and, optionally, "anim"
// under the model name of the url.
func (srv *Server) HandlerUploadModel(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["model"]
	data, err := webutils.ReadFormFile(r, "iqm")
	if err != nil {
		webutils.WriteError(w, errkind.New(errkind.Parse, "%v", err))
		return
	}
	script, err := webutils.ReadFormFile(r, "anim")
	if err != nil {
		if !errors.Is(err, http.ErrMissingFile) {
			webutils.WriteError(w, errkind.New(errkind.Parse, "%v", err))
			return
		}
		script = nil
	}

	m, err := srv.store.LoadModel(name, data, script)
	if err != nil {
		status.Error("upload of %q failed: %v", name, err)
		webutils.WriteError(w, err)
		return
	}
	status.Info("model %q uploaded", name)
	webutils.WriteJson(w, summary(m))
}
