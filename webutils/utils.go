package webutils

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/mogaika/skelanim/errkind"
)

func WriteFileHeaders(w http.ResponseWriter, name string) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+name+"\"")
}

func WriteFile(w http.ResponseWriter, in io.Reader, name string) {
	WriteFileHeaders(w, name)
	if _, err := io.Copy(w, in); err != nil {
		log.Warn().Err(err).Str("file", name).Msg("Error when writing file response")
	}
}

func WriteJson(w http.ResponseWriter, data interface{}) {
	res, err := json.Marshal(data)
	if err != nil {
		WriteError(w, err)
	} else {
		w.Header().Set("Content-Type", "application/json")
		WriteResult(w, res)
	}
}

func WriteYaml(w http.ResponseWriter, data interface{}) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(data); err != nil {
		WriteError(w, errors.Wrapf(err, "Failed to marshal"))
		return
	}
	enc.Close()
	w.Header().Set("Content-Type", "application/yaml")
	WriteResult(w, buf.Bytes())
}

func WriteJsonFile(w http.ResponseWriter, v interface{}, fileName string) {
	if data, err := json.MarshalIndent(v, "", "  "); err != nil {
		WriteError(w, errors.Wrapf(err, "Failed to marshal"))
	} else {
		WriteFile(w, bytes.NewReader(data), fileName+".json")
	}
}

// ReadFormFile returns the content of the multipart file formFileKey of a
// POST request. A missing file gives http.ErrMissingFile.
func ReadFormFile(r *http.Request, formFileKey string) ([]byte, error) {
	if strings.ToUpper(r.Method) != "POST" {
		return nil, errors.Errorf("Invalid http method %q", r.Method)
	}

	f, _, err := r.FormFile(formFileKey)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to get file %q", formFileKey)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read %q", formFileKey)
	}
	return data, nil
}

func WriteResult(w http.ResponseWriter, data []byte) {
	_, err := w.Write(data)
	if err != nil {
		log.Warn().Err(err).Msg("Error when writing response")
	}
}

// StatusOf maps the error kind of err to an http status.
func StatusOf(err error) int {
	switch errkind.Of(err) {
	case errkind.Lookup:
		return http.StatusNotFound
	case errkind.Format, errkind.Range, errkind.Parse:
		return http.StatusBadRequest
	case errkind.Limit:
		return http.StatusInsufficientStorage
	}
	return http.StatusInternalServerError
}

func WriteError(w http.ResponseWriter, err error) {
	type jError struct {
		Error string `json:"error"`
		Kind  string `json:"kind,omitempty"`
	}
	je := &jError{Error: err.Error()}
	if k := errkind.Of(err); k != errkind.Unknown {
		je.Kind = k.String()
	}
	data, merr := json.Marshal(je)
	if merr != nil {
		log.Error().Err(merr).AnErr("original", err).Msg("Error marshaling error")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	log.Warn().Str("error", je.Error).Msg("HERR")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusOf(err))
	WriteResult(w, data)
}
