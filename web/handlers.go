package web

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"github.com/gin-gonic/gin"

	"go.jacobcolvin.com/crdview/crd"
	"go.jacobcolvin.com/crdview/schema"
	"go.jacobcolvin.com/crdview/session"
	"go.jacobcolvin.com/crdview/source"
	"go.jacobcolvin.com/crdview/tree"
)

// Empty-state messages.
const (
	MessageEmpty    = "No CustomResourceDefinitions loaded."
	MessageNoMatch  = "No definitions match the filter."
	MessageNoSchema = "No OpenAPI v3 schema found for this version."
)

type pageData struct {
	Def      *crd.Definition
	Source   string
	Error    string
	Filter   string
	Message  string
	Version  string
	Sidebar  []sidebarItem
	Versions []versionItem
	Rows     []rowView
	Count    int
	Busy     bool
}

type sidebarItem struct {
	Name     string
	Kind     string
	Group    string
	Href     string
	Selected bool
}

type versionItem struct {
	Name       string
	Storage    bool
	Deprecated bool
	Selected   bool
}

type rowView struct {
	tree.Row

	Caret   string
	Icon    string
	Caption string
	Href    string
	Display string
}

func (s *Server) index(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filter := c.Query("q")
	data := s.frame(filter, "")

	if len(data.Sidebar) > 0 {
		c.Redirect(http.StatusSeeOther, data.Sidebar[0].Href)

		return
	}

	data.Message = MessageEmpty
	if data.Count > 0 {
		data.Message = MessageNoMatch
	}

	c.HTML(http.StatusOK, "page.html", data)
}

func (s *Server) page(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	name := c.Param("name")
	filter := c.Query("q")
	data := s.frame(filter, name)

	def, ok := s.find(name)
	if !ok {
		data.Message = "CustomResourceDefinition " + strconv.Quote(name) + " not found."
		c.HTML(http.StatusNotFound, "page.html", data)

		return
	}

	data.Def = &def

	version := c.DefaultQuery("version", def.DefaultVersion())
	v, ok := def.Version(version)

	if !ok && len(def.Versions) > 0 {
		data.Message = "Version " + strconv.Quote(version) + " not found."
		c.HTML(http.StatusNotFound, "page.html", data)

		return
	}

	data.Version = version
	for _, dv := range def.Versions {
		data.Versions = append(data.Versions, versionItem{
			Name:       dv.Name,
			Storage:    dv.Storage,
			Deprecated: dv.Deprecated,
			Selected:   dv.Name == version,
		})
	}

	if v.Schema == nil {
		data.Message = MessageNoSchema
		c.HTML(http.StatusOK, "page.html", data)

		return
	}

	t := buildTree(v, c.QueryArray("open"), 0)
	open := t.ExpandedPaths()
	rows := t.Rows()
	s.metrics.ObserveRows(len(rows))

	base := "/crds/" + url.PathEscape(def.Name)

	for _, row := range rows {
		rv := rowView{
			Row:     row,
			Caret:   tree.Caret(row),
			Icon:    tree.Icons[row.Kind],
			Caption: tree.ItemsCaption(row),
			Display: row.Path.Display(t.RootName()),
		}

		if row.Expandable {
			rv.Href = base + "?" + toggleQuery(filter, version, open, row.Path).Encode()
		}

		data.Rows = append(data.Rows, rv)
	}

	c.HTML(http.StatusOK, "page.html", data)
}

// frame fills the parts of the page shared by every view. The caller must
// hold s.mu.
func (s *Server) frame(filter, selected string) pageData {
	data := pageData{
		Source: s.sess.Source(),
		Filter: filter,
		Busy:   s.sess.Busy(),
		Count:  len(s.sess.Definitions()),
	}

	if err := s.sess.Err(); err != nil {
		data.Error = crd.Describe(err)
	}

	defs := s.sess.Definitions()
	for i := range defs {
		d := &defs[i]
		if !session.Matches(d, filter) {
			continue
		}

		href := "/crds/" + url.PathEscape(d.Name)
		if filter != "" {
			href += "?" + url.Values{"q": {filter}}.Encode()
		}

		data.Sidebar = append(data.Sidebar, sidebarItem{
			Name:     d.Name,
			Kind:     d.Kind,
			Group:    d.Group,
			Href:     href,
			Selected: d.Name == selected,
		})
	}

	return data
}

func (s *Server) reloadForm(c *gin.Context) {
	src, err := s.requestSource(c.PostForm("url"), c.PostForm("text"))
	if err != nil {
		c.String(http.StatusBadRequest, err.Error())

		return
	}

	err = s.Reload(c.Request.Context(), src)
	if errors.Is(err, ErrBusy) {
		slog.Info("reload rejected", slog.Any("error", err))
	}

	c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) clearForm(c *gin.Context) {
	s.Clear()
	c.Redirect(http.StatusSeeOther, "/")
}

type definitionJSON struct {
	Name       string        `json:"name"`
	Group      string        `json:"group"`
	Kind       string        `json:"kind"`
	Plural     string        `json:"plural,omitempty"`
	Singular   string        `json:"singular,omitempty"`
	ListKind   string        `json:"listKind,omitempty"`
	Scope      string        `json:"scope,omitempty"`
	ShortNames []string      `json:"shortNames,omitempty"`
	Versions   []versionJSON `json:"versions"`
}

type versionJSON struct {
	Name               string `json:"name"`
	DeprecationWarning string `json:"deprecationWarning,omitempty"`
	Served             bool   `json:"served"`
	Storage            bool   `json:"storage"`
	Deprecated         bool   `json:"deprecated"`
	Schema             bool   `json:"schema"`
}

type rowJSON struct {
	Path        string `json:"path"`
	Display     string `json:"display"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Format      string `json:"format,omitempty"`
	Description string `json:"description,omitempty"`
	Kind        string `json:"kind"`
	Depth       int    `json:"depth"`
	Expandable  bool   `json:"expandable"`
	Expanded    bool   `json:"expanded"`
	Required    bool   `json:"required"`
	Items       bool   `json:"items"`
	Caption     string `json:"caption,omitempty"`
}

type rowsJSON struct {
	Definition string    `json:"definition"`
	Version    string    `json:"version"`
	Message    string    `json:"message,omitempty"`
	Rows       []rowJSON `json:"rows"`
	Schema     bool      `json:"schema"`
}

func toDefinitionJSON(d *crd.Definition) definitionJSON {
	out := definitionJSON{
		Name:       d.Name,
		Group:      d.Group,
		Kind:       d.Kind,
		Plural:     d.Plural,
		Singular:   d.Singular,
		ListKind:   d.ListKind,
		Scope:      d.Scope,
		ShortNames: d.ShortNames,
		Versions:   make([]versionJSON, 0, len(d.Versions)),
	}

	for _, v := range d.Versions {
		out.Versions = append(out.Versions, versionJSON{
			Name:               v.Name,
			DeprecationWarning: v.DeprecationWarning,
			Served:             v.Served,
			Storage:            v.Storage,
			Deprecated:         v.Deprecated,
			Schema:             v.Schema != nil,
		})
	}

	return out
}

func (s *Server) listDefinitions(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filter := c.Query("q")
	defs := s.sess.Definitions()
	out := make([]definitionJSON, 0, len(defs))

	for i := range defs {
		if session.Matches(&defs[i], filter) {
			out = append(out, toDefinitionJSON(&defs[i]))
		}
	}

	resp := gin.H{
		"source":      s.sess.Source(),
		"busy":        s.sess.Busy(),
		"definitions": out,
	}

	if err := s.sess.Err(); err != nil {
		resp["error"] = crd.Describe(err)
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) getDefinition(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.find(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "definition not found"})

		return
	}

	c.JSON(http.StatusOK, toDefinitionJSON(&def))
}

func (s *Server) getRows(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.find(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "definition not found"})

		return
	}

	v, ok := def.Version(c.Param("version"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "version not found"})

		return
	}

	depth, err := strconv.Atoi(c.DefaultQuery("depth", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "depth must be an integer"})

		return
	}

	resp := rowsJSON{
		Definition: def.Name,
		Version:    v.Name,
		Rows:       []rowJSON{},
	}

	if v.Schema == nil {
		resp.Message = MessageNoSchema
		c.JSON(http.StatusOK, resp)

		return
	}

	t := buildTree(v, c.QueryArray("open"), depth)
	rows := t.Rows()
	s.metrics.ObserveRows(len(rows))

	resp.Schema = true
	for _, row := range rows {
		resp.Rows = append(resp.Rows, rowJSON{
			Path:        string(row.Path),
			Display:     row.Path.Display(t.RootName()),
			Name:        row.Name,
			Type:        row.Type,
			Format:      row.Format,
			Description: row.Description,
			Kind:        row.Kind.String(),
			Depth:       row.Depth,
			Expandable:  row.Expandable,
			Expanded:    row.Expanded,
			Required:    row.Required,
			Items:       row.Items,
			Caption:     tree.ItemsCaption(row),
		})
	}

	c.JSON(http.StatusOK, resp)
}

type reloadRequest struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

func (s *Server) reload(c *gin.Context) {
	var req reloadRequest

	err := c.ShouldBindJSON(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	src, err := s.requestSource(req.URL, req.Text)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	err = s.Reload(c.Request.Context(), src)

	switch {
	case err == nil:
		s.mu.RLock()
		n := len(s.sess.Definitions())
		s.mu.RUnlock()

		c.JSON(http.StatusOK, gin.H{"definitions": n})

	case errors.Is(err, ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, crd.ErrAcquire):
		c.JSON(http.StatusBadGateway, gin.H{"error": crd.Describe(err)})

	default:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": crd.Describe(err)})
	}
}

func (s *Server) clear(c *gin.Context) {
	s.Clear()
	c.Status(http.StatusNoContent)
}

// requestSource returns the source named by a reload request, or nil to
// reload the current source.
func (s *Server) requestSource(rawURL, text string) (source.Source, error) {
	switch {
	case rawURL != "" && text != "":
		return nil, errors.New("give either a url or text, not both")
	case rawURL != "":
		return s.urlSrc(rawURL), nil
	case text != "":
		return source.NewText("pasted text", []byte(text)), nil
	}

	return nil, nil //nolint:nilnil // nil selects the current source.
}

// buildTree creates the tree for v, expands it to depth, then opens each
// path in open. Unknown or leaf paths are ignored.
func buildTree(v crd.Version, open []string, depth int) *tree.Tree {
	t := tree.New(v.Schema)
	if depth != 0 {
		t.ExpandTo(depth)
	}

	for _, p := range open {
		t.SetExpanded(schema.Path(p), true)
	}

	return t
}

// toggleQuery returns the query of the page with p toggled in the open set.
func toggleQuery(filter, version string, open []schema.Path, p schema.Path) url.Values {
	next := slices.Clone(open)
	if i := slices.Index(next, p); i >= 0 {
		next = slices.Delete(next, i, i+1)
	} else {
		next = append(next, p)
		slices.Sort(next)
	}

	q := url.Values{}
	if filter != "" {
		q.Set("q", filter)
	}

	q.Set("version", version)

	for _, o := range next {
		q.Add("open", string(o))
	}

	return q
}

func badgeClass(t string) string {
	switch t {
	case "object", "array", "string", "integer", "number", "boolean":
		return "t-" + t
	}

	return "t-any"
}
