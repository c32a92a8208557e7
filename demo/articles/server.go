// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package articles

import (
	"context"
	"net/http"
	"strconv"

	"cloudeng.io/errors"
	"cloudeng.io/logging/ctxlog"
	"cloudeng.io/permissionmanager"
	"cloudeng.io/permissionmanager/locator"
	"cloudeng.io/permissionmanager/manager"
	"cloudeng.io/permissionmanager/rest"
	"cloudeng.io/permissionmanager/webauth/identity"
	"github.com/go-json-experiment/json"
)

// Option represents an option for NewServer.
type Option func(o *options)

type options struct {
	registry    *locator.Registry
	config      locator.Config
	paginator   rest.Paginator
	listActions []string
	auth        *identity.Authenticator
	denied      permissionmanager.CounterVecInc
}

// WithRegistry sets the registry of manager types, it defaults to
// NewRegistry().
func WithRegistry(r *locator.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithLocatorConfig sets the locator configuration.
func WithLocatorConfig(c locator.Config) Option {
	return func(o *options) {
		o.config = c
	}
}

// WithPaginator sets the paginator used for listings.
func WithPaginator(p rest.Paginator) Option {
	return func(o *options) {
		o.paginator = p
	}
}

// WithListActions overrides the configured list actions for the
// articles collection, calling it with no actions disables collection
// level permissions.
func WithListActions(actions ...string) Option {
	return func(o *options) {
		o.listActions = append([]string{}, actions...)
	}
}

// WithAuthenticator sets the authenticator used to establish the caller
// of each request. Without one the caller is taken from the request's
// context, see identity.WithCaller.
func WithAuthenticator(a *identity.Authenticator) Option {
	return func(o *options) {
		o.auth = a
	}
}

// WithDeniedCounter sets the counter incremented for denied requests.
func WithDeniedCounter(counter permissionmanager.CounterVecInc) Option {
	return func(o *options) {
		o.denied = counter
	}
}

// Server implements the articles API:
//
//	GET    /articles/                         list
//	POST   /articles/                         create
//	GET    /articles/custom_non_detail/       custom_non_detail
//	GET    /articles/export/                  export
//	GET    /articles/{id}/                    retrieve
//	PUT    /articles/{id}/                    update
//	PATCH  /articles/{id}/                    partial_update
//	DELETE /articles/{id}/                    destroy
//	PATCH  /articles/{id}/publish/            publish
//	PATCH  /articles/{id}/without_action/     no action
//	GET    /articles/{id}/comments/           list comments
//	POST   /articles/{id}/comments/           create comment
//	DELETE /articles/{id}/comments/{cid}/     destroy comment
type Server struct {
	store   *Store
	opts    options
	gate    *rest.Gate
	field   rest.Field
	handler http.Handler
}

// NewServer returns a new Server for store.
func NewServer(store *Store, opts ...Option) *Server {
	s := &Server{store: store}
	for _, opt := range opts {
		opt(&s.opts)
	}
	if s.opts.registry == nil {
		s.opts.registry = NewRegistry()
	}
	loc := locator.New(s.opts.registry, locator.WithConfig(s.opts.config))
	s.gate = rest.NewGate(loc, rest.WithDeniedCounter(s.opts.denied))
	comments, ok := s.opts.registry.Lookup(CommentResource)
	if !ok {
		comments = CommentType
	}
	s.field = rest.Field{
		Actions: []string{manager.Update, Publish},
		Children: []rest.FieldChild{
			{Name: "comments", Type: comments, Actions: []string{manager.Create}},
		},
		OmitMessages: loc.Config().OmitMessages,
	}

	mux := http.NewServeMux()
	mux.Handle("GET /articles/{$}", s.articles(manager.List, s.list))
	mux.Handle("POST /articles/{$}", s.articles(manager.Create, s.create))
	mux.Handle("GET /articles/custom_non_detail/{$}", s.articles(CustomNonDetail, s.customNonDetail))
	mux.Handle("GET /articles/export/{$}", s.articles(Export, s.export))
	mux.Handle("GET /articles/{id}/{$}", s.articles(manager.Retrieve, s.retrieve))
	mux.Handle("PUT /articles/{id}/{$}", s.articles(manager.Update, s.update))
	mux.Handle("PATCH /articles/{id}/{$}", s.articles(manager.PartialUpdate, s.update))
	mux.Handle("DELETE /articles/{id}/{$}", s.articles(manager.Destroy, s.destroy))
	mux.Handle("PATCH /articles/{id}/publish/{$}", s.articles(Publish, s.publish))
	mux.Handle("PATCH /articles/{id}/without_action/{$}", s.articles("", s.withoutAction))
	mux.Handle("GET /articles/{id}/comments/{$}", s.comments(manager.List, s.listComments))
	mux.Handle("POST /articles/{id}/comments/{$}", s.comments(manager.Create, s.createComment))
	mux.Handle("DELETE /articles/{id}/comments/{cid}/{$}", s.comments(manager.Destroy, s.destroyComment))
	s.handler = mux
	if s.opts.auth != nil {
		s.handler = s.opts.auth.Middleware(mux)
	}
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Locator returns the locator used by the server.
func (s *Server) Locator() *locator.Locator {
	return s.gate.Locator()
}

func (s *Server) articleRoute(r *http.Request, action string) *articleRoute {
	return &articleRoute{
		action:      action,
		caller:      identity.FromContext(r.Context()),
		listActions: s.opts.listActions,
	}
}

func (s *Server) articles(action string, h http.HandlerFunc) http.Handler {
	return s.gate.Handler(func(r *http.Request) locator.Descriptor {
		return s.articleRoute(r, action)
	}, h)
}

func writeDetail(w http.ResponseWriter, r *http.Request, status int, detail string) {
	rest.WriteJSON(w, r, status, rest.Detail{Detail: detail})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	ctxlog.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeDetail(w, r, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}

func pathID(r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(r.PathValue(name))
	return id, err == nil && id > 0
}

// lookup returns the article named by the request's path.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*Article, bool) {
	id, ok := pathID(r, "id")
	if !ok {
		writeDetail(w, r, http.StatusNotFound, "Not found.")
		return nil, false
	}
	a, err := s.store.Article(id)
	if err != nil {
		writeDetail(w, r, http.StatusNotFound, "Not found.")
		return nil, false
	}
	return &a, true
}

// object returns the article named by the request's path if the caller
// may perform the current action on it.
func (s *Server) object(w http.ResponseWriter, r *http.Request) (*Article, bool) {
	a, ok := s.lookup(w, r)
	if !ok || !s.gate.Object(w, r, a) {
		return nil, false
	}
	return a, true
}

type articleResponse struct {
	Article     `json:",inline"`
	Permissions *manager.Resolution `json:"permissions,omitzero"`
}

func (s *Server) represent(ctx context.Context, a *Article) (articleResponse, error) {
	perms, err := s.field.Represent(ctx, a)
	if err != nil && !errors.Is(err, rest.ErrSkipField) {
		return articleResponse{}, err
	}
	return articleResponse{Article: *a, Permissions: perms}, nil
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, a *Article) {
	resp, err := s.represent(r.Context(), a)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	rest.WriteJSON(w, r, status, resp)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page, err := rest.Paginate(r, s.opts.paginator, s.store.Articles())
	if err != nil {
		if errors.Is(err, rest.ErrInvalidPage) {
			writeDetail(w, r, http.StatusNotFound, "Invalid page.")
			return
		}
		s.internalError(w, r, err)
		return
	}
	out, err := rest.MapPage(page, func(a Article) (articleResponse, error) {
		return s.represent(ctx, &a)
	})
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	rest.WriteJSON(w, r, http.StatusOK, out)
}

type articleInput struct {
	Title  *string `json:"title"`
	Status *Status `json:"status"`
}

func (in articleInput) apply(a *Article, partial bool) string {
	if in.Title == nil && !partial {
		return "title: This field is required."
	}
	if in.Title != nil {
		if len(*in.Title) == 0 {
			return "title: This field may not be blank."
		}
		a.Title = *in.Title
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return "status: Not a valid choice."
		}
		a.Status = *in.Status
	}
	return ""
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.UnmarshalRead(r.Body, v); err != nil {
		ctxlog.Debug(r.Context(), "invalid request body", "path", r.URL.Path, "error", err)
		writeDetail(w, r, http.StatusBadRequest, "Invalid request body.")
		return false
	}
	return true
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var in articleInput
	if !decode(w, r, &in) {
		return
	}
	var a Article
	if msg := in.apply(&a, false); len(msg) > 0 {
		writeDetail(w, r, http.StatusBadRequest, msg)
		return
	}
	a = s.store.CreateArticle(a)
	ctx := r.Context()
	ctxlog.Info(ctx, "article created", "id", a.ID, "caller", identity.FromContext(ctx).String())
	s.respond(w, r, http.StatusCreated, &a)
}

func (s *Server) customNonDetail(w http.ResponseWriter, r *http.Request) {
	rest.WriteJSON(w, r, http.StatusOK, map[string]bool{CustomNonDetail: true})
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	rest.WriteJSON(w, r, http.StatusOK, s.store.Articles())
}

func (s *Server) retrieve(w http.ResponseWriter, r *http.Request) {
	a, ok := s.object(w, r)
	if !ok {
		return
	}
	s.respond(w, r, http.StatusOK, a)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	a, ok := s.object(w, r)
	if !ok {
		return
	}
	var in articleInput
	if !decode(w, r, &in) {
		return
	}
	updated := *a
	if msg := in.apply(&updated, r.Method == http.MethodPatch); len(msg) > 0 {
		writeDetail(w, r, http.StatusBadRequest, msg)
		return
	}
	if err := s.store.UpdateArticle(updated); err != nil {
		s.internalError(w, r, err)
		return
	}
	*a = updated
	s.respond(w, r, http.StatusOK, a)
}

func (s *Server) destroy(w http.ResponseWriter, r *http.Request) {
	a, ok := s.object(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteArticle(a.ID); err != nil {
		s.internalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) publish(w http.ResponseWriter, r *http.Request) {
	a, ok := s.object(w, r)
	if !ok {
		return
	}
	a.Status = Published
	if err := s.store.UpdateArticle(*a); err != nil {
		s.internalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) withoutAction(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.object(w, r); !ok {
		return
	}
	w.WriteHeader(http.StatusOK)
}

// comments returns a handler for the comments of the article named by the
// request's path. The article's manager, for the update action, is the
// parent manager of the comment managers.
func (s *Server) comments(action string, h func(http.ResponseWriter, *http.Request, *Article)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a, ok := s.lookup(w, r)
		if !ok {
			return
		}
		ctx := r.Context()
		pm, err := s.Locator().New(ctx, s.articleRoute(r, manager.Update), a)
		if err != nil {
			s.internalError(w, r, err)
			return
		}
		d := &commentRoute{
			action:         action,
			caller:         identity.FromContext(ctx),
			article:        a,
			articleManager: pm,
		}
		s.gate.Handler(func(*http.Request) locator.Descriptor { return d },
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				h(w, r, a)
			})).ServeHTTP(w, r)
	})
}

func (s *Server) listComments(w http.ResponseWriter, r *http.Request, a *Article) {
	page, err := rest.Paginate(r, s.opts.paginator, s.store.Comments(a.ID))
	if err != nil {
		if errors.Is(err, rest.ErrInvalidPage) {
			writeDetail(w, r, http.StatusNotFound, "Invalid page.")
			return
		}
		s.internalError(w, r, err)
		return
	}
	rest.WriteJSON(w, r, http.StatusOK, page)
}

func (s *Server) createComment(w http.ResponseWriter, r *http.Request, a *Article) {
	var in struct {
		Title string `json:"title"`
	}
	if !decode(w, r, &in) {
		return
	}
	if len(in.Title) == 0 {
		writeDetail(w, r, http.StatusBadRequest, "title: This field is required.")
		return
	}
	c, err := s.store.AddComment(Comment{ArticleID: a.ID, Title: in.Title})
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	rest.WriteJSON(w, r, http.StatusCreated, c)
}

func (s *Server) destroyComment(w http.ResponseWriter, r *http.Request, a *Article) {
	id, ok := pathID(r, "cid")
	if !ok {
		writeDetail(w, r, http.StatusNotFound, "Not found.")
		return
	}
	c, err := s.store.Comment(a.ID, id)
	if err != nil {
		writeDetail(w, r, http.StatusNotFound, "Not found.")
		return
	}
	if !s.gate.Object(w, r, &c) {
		return
	}
	if err := s.store.DeleteComment(a.ID, c.ID); err != nil {
		s.internalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
