package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pr-poehali-dev/samp-survival-site/pkg/gameapi"
	"github.com/pr-poehali-dev/samp-survival-site/pkg/model"
)

// listOptions builds ListOptions from query parameters.
func listOptions(r *http.Request) model.ListOptions {
	opts := model.DefaultListOptions()
	q := r.URL.Query()
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		opts.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil {
		opts.Offset = v
	}
	opts.Category = q.Get("category")
	opts.Username = q.Get("username")
	opts.Clamp()
	return opts
}

func urlParamInt(r *http.Request, name string) (int, error) {
	return strconv.Atoi(chi.URLParam(r, name))
}

// reprime refreshes one poller cache after an admin edit so the public
// pages reflect it immediately. On failure the previous snapshot keeps
// serving, which is why the miss is worth a warning.
func (s *Server) reprime(ctx context.Context, name string, p interface{ Tick(context.Context) error }) {
	if err := p.Tick(ctx); err != nil {
		s.logger.Warn("cache re-prime failed", "cache", name, "error", err)
	}
}

// actorName is the admin identity recorded in audit rows.
func actorName(r *http.Request) string {
	if sess := SessionFromContext(r.Context()); sess != nil {
		return sess.User.Name
	}
	return ""
}

// --- Users panel ---

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	opts := listOptions(r)

	page, err := s.api.FetchUsers(r.Context(), opts)
	if err != nil {
		respondUpstreamError(w, reqID, err)
		return
	}
	respondList(w, reqID, page.Users, &model.Pagination{
		Total:   page.Total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
		HasMore: opts.Offset+len(page.Users) < page.Total,
	})
}

type userPatchRequest struct {
	Money  *int64 `json:"u_money"`
	Donate *int64 `json:"u_donate"`
	Mute   *int   `json:"u_mute"`
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	userID, err := urlParamInt(r, "id")
	if err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid user id"))
		return
	}

	var req userPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid JSON body"))
		return
	}
	if req.Money == nil && req.Donate == nil && req.Mute == nil {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("no editable fields in patch"))
		return
	}

	patch := gameapi.UserPatch{Money: req.Money, Donate: req.Donate, Mute: req.Mute}
	if err := s.api.UpdateUser(r.Context(), userID, patch); err != nil {
		respondUpstreamError(w, reqID, err)
		return
	}

	s.recordAdminAction(r.Context(), actorName(r), "user_update",
		fmt.Sprintf("user_id=%d", userID))
	respondOK(w, reqID, map[string]any{"updated": true})
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	userID, err := urlParamInt(r, "id")
	if err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid user id"))
		return
	}

	if err := s.api.DeleteUser(r.Context(), userID); err != nil {
		respondUpstreamError(w, reqID, err)
		return
	}

	s.recordAdminAction(r.Context(), actorName(r), "user_delete",
		fmt.Sprintf("user_id=%d", userID))
	respondOK(w, reqID, map[string]any{"deleted": true})
}

// --- Rules panel ---

func (s *Server) handleSaveRule(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var rule gameapi.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid JSON body"))
		return
	}
	if id, err := urlParamInt(r, "id"); err == nil {
		rule.ID = id
	}
	if rule.Title == "" {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("title is required"))
		return
	}

	if err := s.api.SaveRule(r.Context(), actorName(r), rule); err != nil {
		respondUpstreamError(w, reqID, err)
		return
	}

	// The public page reads the cache; re-prime so the edit shows up now,
	// not on the next interval.
	s.reprime(r.Context(), "rules", s.pollers.Rules)
	s.recordAdminAction(r.Context(), actorName(r), "rule_save", rule.Title)
	respondOK(w, reqID, map[string]any{"saved": true})
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	id, err := urlParamInt(r, "id")
	if err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid rule id"))
		return
	}

	if err := s.api.DeleteRule(r.Context(), actorName(r), id); err != nil {
		respondUpstreamError(w, reqID, err)
		return
	}

	s.reprime(r.Context(), "rules", s.pollers.Rules)
	s.recordAdminAction(r.Context(), actorName(r), "rule_delete", strconv.Itoa(id))
	respondOK(w, reqID, map[string]any{"deleted": true})
}

// --- News panel ---

func (s *Server) handleSaveNews(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var item gameapi.NewsItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid JSON body"))
		return
	}
	if id, err := urlParamInt(r, "id"); err == nil {
		item.ID = id
	}
	if item.Title == "" {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("title is required"))
		return
	}

	if err := s.api.SaveNews(r.Context(), actorName(r), item); err != nil {
		respondUpstreamError(w, reqID, err)
		return
	}

	s.reprime(r.Context(), "news", s.pollers.News)
	s.recordAdminAction(r.Context(), actorName(r), "news_save", item.Title)
	respondOK(w, reqID, map[string]any{"saved": true})
}

func (s *Server) handleDeleteNews(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	id, err := urlParamInt(r, "id")
	if err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid news id"))
		return
	}

	if err := s.api.DeleteNews(r.Context(), actorName(r), id); err != nil {
		respondUpstreamError(w, reqID, err)
		return
	}

	s.reprime(r.Context(), "news", s.pollers.News)
	s.recordAdminAction(r.Context(), actorName(r), "news_delete", strconv.Itoa(id))
	respondOK(w, reqID, map[string]any{"deleted": true})
}

// --- Server settings ---

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	sess := SessionFromContext(r.Context())

	var updates map[string]string
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid JSON body"))
		return
	}
	if len(updates) == 0 {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("no settings to update"))
		return
	}

	if err := s.api.UpdateSettings(r.Context(), sess.User.ID, updates); err != nil {
		respondUpstreamError(w, reqID, err)
		return
	}

	s.reprime(r.Context(), "settings", s.pollers.Settings)
	s.recordAdminAction(r.Context(), actorName(r), "settings_update",
		fmt.Sprintf("%d keys", len(updates)))
	respondOK(w, reqID, map[string]any{"updated": true})
}

// --- Blocked IPs ---

func (s *Server) handleListBlocks(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	blocks, err := s.api.ListBlocks(r.Context())
	if err != nil {
		respondUpstreamError(w, reqID, err)
		return
	}
	respondOK(w, reqID, blocks)
}

func (s *Server) handleUnblock(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	ip := chi.URLParam(r, "ip")

	if err := s.api.Unblock(r.Context(), ip); err != nil {
		respondUpstreamError(w, reqID, err)
		return
	}

	s.recordAdminAction(r.Context(), actorName(r), "ip_unblock", ip)
	respondOK(w, reqID, map[string]any{"unblocked": true})
}

// --- Logs ---

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	opts := listOptions(r)

	page, err := s.api.FetchLogs(r.Context(), opts)
	if err != nil {
		respondUpstreamError(w, reqID, err)
		return
	}
	respondList(w, reqID, page.Logs, &model.Pagination{
		Total:   page.Total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
		HasMore: opts.Offset+len(page.Logs) < page.Total,
	})
}

// --- Rule categories (local taxonomy) ---

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	s.saveCategory(w, r, true)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	s.saveCategory(w, r, false)
}

type categoryRequest struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Icon      string `json:"icon"`
	SortOrder int    `json:"sort_order"`
}

func (s *Server) saveCategory(w http.ResponseWriter, r *http.Request, create bool) {
	reqID := RequestIDFromContext(r.Context())

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid JSON body"))
		return
	}
	if !create {
		req.ID = chi.URLParam(r, "id")
	}
	if req.ID == "" || req.Label == "" {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("id and label are required"))
		return
	}

	// Icon names outside the closed set are rejected, not silently dropped.
	icon, err := model.ParseCategoryIcon(req.Icon)
	if err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError(err.Error(),
			model.FieldError{Field: "icon", Message: err.Error()}))
		return
	}

	cat := &model.RuleCategory{ID: req.ID, Label: req.Label, Icon: icon, SortOrder: req.SortOrder}

	if create {
		err = s.store.CreateCategory(r.Context(), cat)
	} else {
		err = s.store.UpdateCategory(r.Context(), cat)
	}
	if err != nil {
		s.logger.Error("save category", "id", cat.ID, "error", err)
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError(err.Error()))
		return
	}

	s.recordAdminAction(r.Context(), actorName(r), "category_save", cat.ID)
	if create {
		respondCreated(w, reqID, cat)
		return
	}
	respondOK(w, reqID, cat)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	// A category still referenced by live rules cannot go: the public page
	// would show rules under a heading that no longer exists.
	rules, ok := s.pollers.Rules.Get()
	if !ok {
		fetched, err := s.api.FetchRules(r.Context())
		if err != nil {
			respondUpstreamError(w, reqID, err)
			return
		}
		rules = fetched
	}
	for _, rule := range rules {
		if rule.Category == id {
			respondError(w, reqID, http.StatusConflict, &model.APIError{
				Code:    model.ErrConflict,
				Message: fmt.Sprintf("category %q is still used by rule %d", id, rule.ID),
			})
			return
		}
	}

	if err := s.store.DeleteCategory(r.Context(), id); err != nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("category", id))
		return
	}

	s.recordAdminAction(r.Context(), actorName(r), "category_delete", id)
	respondOK(w, reqID, map[string]any{"deleted": true})
}

// --- Cases panel ---

func (s *Server) handleCaseCatalog(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	catalog, err := s.api.FetchCaseCatalog(r.Context())
	if err != nil {
		respondUpstreamError(w, reqID, err)
		return
	}
	respondOK(w, reqID, catalog)
}

type casePricesRequest struct {
	PriceMoney  *int64 `json:"price_money"`
	PriceDonate *int64 `json:"price_donate"`
}

func (s *Server) handleUpdateCasePrices(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	sess := SessionFromContext(r.Context())

	caseID, err := urlParamInt(r, "id")
	if err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid case id"))
		return
	}

	var req casePricesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid JSON body"))
		return
	}
	// The upstream writes both prices as a pair; a partial update would
	// silently zero the missing one.
	if req.PriceMoney == nil || req.PriceDonate == nil {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("price_money and price_donate are both required"))
		return
	}
	if *req.PriceMoney < 0 || *req.PriceDonate < 0 {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("prices must not be negative"))
		return
	}

	if err := s.api.UpdateCasePrices(r.Context(), sess.User.ID, caseID, *req.PriceMoney, *req.PriceDonate); err != nil {
		respondUpstreamError(w, reqID, err)
		return
	}

	s.recordAdminAction(r.Context(), actorName(r), "case_reprice",
		fmt.Sprintf("case_id=%d money=%d donate=%d", caseID, *req.PriceMoney, *req.PriceDonate))
	respondOK(w, reqID, map[string]any{"updated": true})
}

type lootPatchRequest struct {
	Price      *int64   `json:"loot_price"`
	DropChance *float64 `json:"drop_chance"`
}

func (s *Server) handleUpdateLootItem(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	sess := SessionFromContext(r.Context())

	lootID, err := urlParamInt(r, "id")
	if err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid item id"))
		return
	}

	var req lootPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid JSON body"))
		return
	}
	if req.Price == nil && req.DropChance == nil {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("no editable fields in patch"))
		return
	}

	patch := gameapi.LootPatch{Price: req.Price, DropChance: req.DropChance}
	if err := s.api.UpdateLootItem(r.Context(), sess.User.ID, lootID, patch); err != nil {
		respondUpstreamError(w, reqID, err)
		return
	}

	s.recordAdminAction(r.Context(), actorName(r), "loot_update",
		fmt.Sprintf("loot_id=%d", lootID))
	respondOK(w, reqID, map[string]any{"updated": true})
}
