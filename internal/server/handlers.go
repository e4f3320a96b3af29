package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/autobrr/go-mediafix/internal/ebml"
	"github.com/autobrr/go-mediafix/internal/media"
	"github.com/autobrr/go-mediafix/internal/repair"
	"github.com/autobrr/go-mediafix/internal/store"
)

var errNoFile = errors.New("request carries no file")

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprint(w, "OK")
}

// handleAudio stores a chunk as uploaded. A chunk with its own header
// becomes the base for repairing the next chunks of the session.
func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	data, mimetype, err := s.readChunk(w, r)
	if err != nil {
		s.fail(w, err)
		return
	}
	format := uploadFormat(mimetype, data, media.FormatWebM)

	unlock := s.locks.lock(session)
	defer unlock()

	rec, err := s.store.Put(r.Context(), session, format, data, false, false)
	if err != nil {
		s.fail(w, err)
		return
	}
	if repair.HasHeader(format, data) {
		if err := s.store.SetSane(session, rec.ID); err != nil {
			s.fail(w, err)
			return
		}
	}
	fmt.Fprint(w, "OK")
}

func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	data, mimetype, err := s.readChunk(w, r)
	if err != nil {
		s.fail(w, err)
		return
	}
	format := uploadFormat(mimetype, data, media.FormatWebM)
	if _, err := s.store.Put(r.Context(), session, format, data, true, false); err != nil {
		s.fail(w, err)
		return
	}
	fmt.Fprint(w, "OK")
}

// handleRepair stores a chunk and answers with it repaired against the last
// sane chunk of the session.
func (s *Server) handleRepair(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	data, mimetype, err := s.readChunk(w, r)
	if err != nil {
		s.fail(w, err)
		return
	}

	res, err := s.ingest(r.Context(), session, uploadFormat(mimetype, data, media.FormatAuto), data)
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "audio/"+res.format.Extension())
	w.Header().Set("X-Chunk-Id", res.record.ID)
	w.Write(res.data)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	records, err := s.store.List(session)
	if err != nil {
		s.fail(w, err)
		return
	}
	if records == nil {
		records = []store.ChunkRecord{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(records); err != nil {
		s.log.WithError(err).Error("could not encode records")
	}
}

type ingestResult struct {
	record   *store.ChunkRecord
	format   media.Format
	data     []byte
	repaired bool
}

// ingest stores data for session. A chunk with a header is kept as is and
// becomes the sane chunk. Any other chunk is repaired against the sane chunk
// and the repaired result becomes the sane chunk.
func (s *Server) ingest(ctx context.Context, session string, format media.Format, data []byte) (*ingestResult, error) {
	unlock := s.locks.lock(session)
	defer unlock()

	log := s.log.WithFields(logrus.Fields{"session": session, "bytes": len(data)})

	if repair.HasHeader(format, data) {
		format, _ = media.Resolve(format, data)
		rec, err := s.store.Put(ctx, session, format, data, false, false)
		if err != nil {
			return nil, err
		}
		if err := s.store.SetSane(session, rec.ID); err != nil {
			return nil, err
		}
		log.WithField("chunk", rec.ID).Debug("stored chunk with header")
		return &ingestResult{record: rec, format: format, data: data}, nil
	}

	sane, err := s.store.LastSane(session)
	if err != nil {
		return nil, err
	}
	if format == media.FormatAuto {
		if format, err = media.ParseFormat(sane.Format); err != nil {
			return nil, err
		}
	}
	prev, err := s.store.Load(*sane)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.Put(ctx, session, format, data, false, false); err != nil {
		return nil, err
	}
	opts := s.opts
	opts.Logger = log
	fixed, err := repair.Fix(format, prev, data, opts)
	if err != nil {
		return nil, err
	}
	rec, err := s.store.Put(ctx, session, format, fixed, false, true)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetSane(session, rec.ID); err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"chunk": rec.ID,
		"prev":  sane.ID,
	}).Debug("repaired chunk")
	return &ingestResult{record: rec, format: format, data: fixed, repaired: true}, nil
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (string, bool) {
	session := r.PathValue("session")
	if !store.ValidSession(session) {
		http.Error(w, "invalid session name", http.StatusBadRequest)
		return "", false
	}
	return session, true
}

// readChunk returns the first file of a multipart upload, or the raw body
// for any other content type, with its mimetype.
func (s *Server) readChunk(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	contentType := r.Header.Get("Content-Type")

	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, "", err
		}
		if len(data) == 0 {
			return nil, "", errNoFile
		}
		return data, contentType, nil
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, "", err
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, "", errNoFile
		}
		if err != nil {
			return nil, "", err
		}
		if part.FileName() == "" {
			part.Close()
			continue
		}
		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return nil, "", err
		}
		return data, part.Header.Get("Content-Type"), nil
	}
}

// uploadFormat picks the format from the mimetype, then from the magic
// bytes of data, then fallback.
func uploadFormat(mimetype string, data []byte, fallback media.Format) media.Format {
	if mimetype != "" && !strings.HasPrefix(mimetype, "application/octet-stream") {
		if f, err := media.ParseFormat(mimetype); err == nil && f != media.FormatAuto {
			return f
		}
	}
	if f, err := media.Detect(data); err == nil {
		return f
	}
	return fallback
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.WithError(err).Error("request failed")
	}
	http.Error(w, err.Error(), status)
}

func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errNoFile), errors.Is(err, store.ErrInvalidSession):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNoSane):
		return http.StatusConflict
	case errors.Is(err, media.ErrMissingStructure):
		return http.StatusUnprocessableEntity
	case errors.Is(err, media.ErrUnknownFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ebml.ErrUnrepresentableLength),
		errors.Is(err, ebml.ErrVarIntOverflow),
		errors.Is(err, ebml.ErrTooDeep):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
