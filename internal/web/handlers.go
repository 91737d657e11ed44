package web

import (
	"net/http"

	"github.com/pr-poehali-dev/samp-survival-site/pkg/gameapi"
	"github.com/pr-poehali-dev/samp-survival-site/pkg/model"
)

// serverName resolves the branded name from the settings cache.
func (web *Web) serverName() string {
	if settings, ok := web.pollers.Settings.Get(); ok {
		return settings.ServerName()
	}
	return gameapi.Settings{}.ServerName()
}

// HandleHome renders the landing page: online count, links, latest news.
func (web *Web) HandleHome(w http.ResponseWriter, r *http.Request) {
	name := web.serverName()

	data := map[string]any{
		"Title":   name,
		"Session": SessionFromContext(r.Context()),
		"Name":    name,
	}
	if online, ok := web.pollers.Online.Get(); ok {
		data["Online"] = online
	}
	if settings, ok := web.pollers.Settings.Get(); ok {
		data["Settings"] = settings
	}
	if news, ok := web.pollers.News.Get(); ok {
		if len(news) > 5 {
			news = news[:5]
		}
		data["News"] = news
	}

	web.render(w, "home", data)
}

// HandleLoginPage renders the login form. The form posts to the JSON API.
func (web *Web) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	if SessionFromContext(r.Context()) != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	web.render(w, "login", map[string]any{
		"Title": "Вход — " + web.serverName(),
		"Error": r.URL.Query().Get("error"),
	})
}

// ruleGroup is one category section on the rules page.
type ruleGroup struct {
	Category model.RuleCategory
	Rules    []gameapi.Rule
}

// HandleRules renders the rules grouped by the locally stored categories.
// Rules whose category has no stored entry get a plain Folder heading.
func (web *Web) HandleRules(w http.ResponseWriter, r *http.Request) {
	var rules []gameapi.Rule
	if cached, ok := web.pollers.Rules.Get(); ok {
		rules = cached
	}

	categories, err := web.store.ListCategories(r.Context())
	if err != nil {
		web.logger.Error("list categories", "error", err)
	}

	known := make(map[string]model.RuleCategory, len(categories))
	for _, c := range categories {
		known[c.ID] = *c
	}

	var groups []ruleGroup
	index := make(map[string]int)
	for _, rule := range rules {
		i, ok := index[rule.Category]
		if !ok {
			cat, found := known[rule.Category]
			if !found {
				cat = model.RuleCategory{ID: rule.Category, Label: rule.Category, Icon: model.IconFolder}
			}
			i = len(groups)
			index[rule.Category] = i
			groups = append(groups, ruleGroup{Category: cat})
		}
		groups[i].Rules = append(groups[i].Rules, rule)
	}

	web.render(w, "rules", map[string]any{
		"Title":   "Правила — " + web.serverName(),
		"Session": SessionFromContext(r.Context()),
		"Groups":  groups,
	})
}

// HandleProfile renders the player's allow-listed stats.
func (web *Web) HandleProfile(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())

	web.render(w, "profile", map[string]any{
		"Title":   sess.User.Name + " — " + web.serverName(),
		"Session": sess,
		"User":    sess.User,
		"Stats":   sess.User.DisplayStats(),
	})
}

// HandleCases renders the case shop. The case list is fetched live: prices
// must be current at the moment of purchase, not cached.
func (web *Web) HandleCases(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())

	data := map[string]any{
		"Title":   "Кейсы — " + web.serverName(),
		"Session": sess,
		"User":    sess.User,
	}

	list, err := web.api.FetchCases(r.Context())
	if err != nil {
		web.logger.Warn("fetch cases for page", "error", err)
		data["LoadError"] = true
	} else {
		data["Cases"] = list
	}

	web.render(w, "cases", data)
}

// HandleAdmin renders the admin console shell. The panels inside load their
// data from /api/v1/admin.
func (web *Web) HandleAdmin(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())

	data := map[string]any{
		"Title":   "Админ-панель — " + web.serverName(),
		"Session": sess,
	}
	if settings, ok := web.pollers.Settings.Get(); ok {
		data["Settings"] = settings
	}
	if online, ok := web.pollers.Online.Get(); ok {
		data["Online"] = online
	}

	web.render(w, "admin", data)
}
