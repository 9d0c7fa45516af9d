package devserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dxblostfound/lostfound/pkg/backend"
	"github.com/dxblostfound/lostfound/pkg/matching"
)

type wireItem struct {
	ID             int64   `json:"id"`
	Type           string  `json:"type"`
	Title          string  `json:"title"`
	Description    *string `json:"description"`
	LocationType   string  `json:"location_type"`
	LocationDetail *string `json:"location_detail"`
	TimeFrame      string  `json:"time_frame"`
	ImageURL       string  `json:"image_url"`
	CreatedAt      string  `json:"created_at"`
}

type wireMatch struct {
	Item       wireItem `json:"item"`
	Similarity float64  `json:"similarity"`
}

type wireEntry struct {
	Item    wireItem    `json:"item"`
	Matches []wireMatch `json:"matches"`
}

type wireHistory struct {
	LostItems  []wireEntry `json:"lost_items"`
	FoundItems []wireEntry `json:"found_items"`
}

type fieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func toWire(it Item) wireItem {
	w := wireItem{
		ID:           it.ID,
		Type:         string(it.Kind),
		Title:        it.Title,
		LocationType: it.LocationType,
		TimeFrame:    it.TimeFrame,
		ImageURL:     it.ImagePath(),
		CreatedAt:    it.CreatedAt.Format(TimestampLayout),
	}
	if it.Description != "" {
		d := it.Description
		w.Description = &d
	}
	if it.LocationDetail != "" {
		d := it.LocationDetail
		w.LocationDetail = &d
	}
	return w
}

func (s *Server) entry(it Item, pool []Item) wireEntry {
	e := wireEntry{Item: toWire(it), Matches: []wireMatch{}}
	for _, c := range rank(it, pool, s.scores, s.topK) {
		e.Matches = append(e.Matches, wireMatch{Item: toWire(c.item), Similarity: c.score})
	}
	return e
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	kind, err := matching.ParseKind(path.Base(r.URL.Path))
	if err != nil {
		writeDetail(w, http.StatusNotFound, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, backend.MaxImageSize+(1<<20))
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid multipart body: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	var missing []fieldError
	field := func(name string, required bool) string {
		v := strings.TrimSpace(r.FormValue(name))
		if required && v == "" {
			missing = append(missing, fieldError{Loc: []string{"body", name}, Msg: "field required", Type: "value_error.missing"})
		}
		return v
	}
	it := Item{
		Kind:           kind,
		Title:          field("title", true),
		Description:    field("description", false),
		LocationType:   field("location_type", true),
		LocationDetail: field("location_detail", false),
		TimeFrame:      field("time_frame", true),
	}

	file, hdr, err := r.FormFile("file")
	if err != nil {
		missing = append([]fieldError{{Loc: []string{"body", "file"}, Msg: "field required", Type: "value_error.missing"}}, missing...)
	}
	if len(missing) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"detail": missing})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := backend.ValidateImage(backend.Image{Filename: hdr.Filename, Data: data}); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	it.ImageExt = strings.ToLower(filepath.Ext(hdr.Filename))

	stored, created, err := s.store.Insert(r.Context(), it, data, r.Header.Get("Idempotency-Key"))
	if err != nil {
		s.log.Errorf("Storing %s item: %v", kind, err)
		writeDetail(w, http.StatusInternalServerError, "could not store item")
		return
	}
	if created {
		s.log.Infof("Stored %s item %d (%s)", kind, stored.ID, stored.Title)
	} else {
		s.log.Infof("Replayed %s item %d for a repeated request", kind, stored.ID)
	}

	pool, err := s.store.List(r.Context(), kind.Opposite())
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "could not list candidates")
		return
	}
	writeJSON(w, http.StatusOK, s.entry(stored, pool))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	lost, err := s.store.List(r.Context(), matching.KindLost)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	found, err := s.store.List(r.Context(), matching.KindFound)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := wireHistory{LostItems: []wireEntry{}, FoundItems: []wireEntry{}}
	for _, it := range lost {
		out.LostItems = append(out.LostItems, s.entry(it, found))
	}
	for _, it := range found {
		out.FoundItems = append(out.FoundItems, s.entry(it, lost))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	kind, err := matching.ParseKind(r.PathValue("kind"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	file := r.PathValue("file")
	ext := filepath.Ext(file)
	id, err := strconv.ParseInt(strings.TrimSuffix(file, ext), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	it, blob, err := s.store.Image(r.Context(), kind, id)
	if errors.Is(err, ErrNotFound) || (err == nil && !strings.EqualFold(ext, it.ImageExt)) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(blob))
	w.Header().Set("ETag", `"`+it.ImageSHA+`"`)
	w.Write(blob)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
