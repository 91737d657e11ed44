package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/dustin/go-humanize"
)

// Template functions available in all templates.
var templateFuncs = template.FuncMap{
	"comma": func(n int64) string {
		return humanize.Comma(n)
	},
	"playtime": func(seconds int64) string {
		d := time.Duration(seconds) * time.Second
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		return fmt.Sprintf("%dч %dм", h, m)
	},
	"formatTime": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("2006-01-02 15:04:05")
	},
	"truncate": func(s string, n int) string {
		if len(s) <= n {
			return s
		}
		return s[:n] + "..."
	},
}

// renderTemplate renders a page template inside the shared layout.
func renderTemplate(w io.Writer, name string, data map[string]any) error {
	content, ok := templates[name]
	if !ok {
		return fmt.Errorf("template not found: %s", name)
	}
	layout, ok := templates["layout"]
	if !ok {
		return fmt.Errorf("layout template not found")
	}

	tmpl, err := template.New("layout").Funcs(templateFuncs).Parse(layout)
	if err != nil {
		return fmt.Errorf("parse layout: %w", err)
	}
	if _, err = tmpl.New("content").Parse(content); err != nil {
		return fmt.Errorf("parse content: %w", err)
	}

	return tmpl.Execute(w, data)
}

// templates holds all page content. In a larger app these would live in
// embedded files.
var templates = map[string]string{
	"layout": `<!DOCTYPE html>
<html lang="ru">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <script src="https://cdn.tailwindcss.com"></script>
</head>
<body class="bg-zinc-900 text-zinc-100 min-h-screen">
    <nav class="bg-zinc-800 border-b border-zinc-700">
        <div class="max-w-6xl mx-auto px-4 flex justify-between h-14 items-center">
            <div class="flex items-center gap-6">
                <a href="/" class="text-lg font-bold text-amber-400">{{if .Name}}{{.Name}}{{else}}Survival RP{{end}}</a>
                <a href="/rules" class="text-sm text-zinc-400 hover:text-zinc-200">Правила</a>
                {{if .Session}}
                <a href="/cases" class="text-sm text-zinc-400 hover:text-zinc-200">Кейсы</a>
                <a href="/profile" class="text-sm text-zinc-400 hover:text-zinc-200">Профиль</a>
                {{if .Session.IsAdmin}}
                <a href="/admin" class="text-sm text-red-400 hover:text-red-300">Админ</a>
                {{end}}
                {{end}}
            </div>
            <div class="flex items-center gap-4">
                {{if .Session}}
                <span class="text-sm text-zinc-400">{{.Session.User.Name}}</span>
                <button onclick="logout()" class="text-sm text-zinc-500 hover:text-zinc-300">Выйти</button>
                {{else}}
                <a href="/login" class="text-sm bg-amber-500 hover:bg-amber-400 text-zinc-900 font-medium px-4 py-1.5 rounded">Войти</a>
                {{end}}
            </div>
        </div>
    </nav>
    <main class="max-w-6xl mx-auto px-4 py-8">
        {{template "content" .}}
    </main>
    <script>
    async function logout() {
        await fetch('/api/v1/auth/logout', {method: 'POST'});
        window.location = '/';
    }
    </script>
</body>
</html>`,

	"home": `<div class="text-center py-12">
    <h1 class="text-4xl font-bold text-amber-400">{{.Name}}</h1>
    {{if .Online}}
    <p class="mt-4 text-xl text-zinc-300">{{.Online.Online}} / {{.Online.MaxPlayers}} игроков онлайн</p>
    {{end}}
    {{if .Settings}}
    <div class="mt-6 flex justify-center gap-4 text-sm">
        {{with index .Settings "discord_link"}}<a href="{{.}}" class="text-indigo-400 hover:underline">Discord</a>{{end}}
        {{with index .Settings "vk_link"}}<a href="{{.}}" class="text-blue-400 hover:underline">VK</a>{{end}}
        {{with index .Settings "forum_link"}}<a href="{{.}}" class="text-amber-400 hover:underline">Форум</a>{{end}}
    </div>
    {{end}}
</div>
{{if .News}}
<section class="mt-8">
    <h2 class="text-2xl font-semibold mb-4">Новости</h2>
    <div class="space-y-4">
        {{range .News}}
        <article class="bg-zinc-800 rounded-lg p-4 border border-zinc-700">
            <h3 class="font-medium text-amber-300">{{.Title}}</h3>
            {{if .Description}}<p class="mt-1 text-sm text-zinc-400">{{truncate .Description 300}}</p>{{end}}
            {{if .CreatedAt}}<p class="mt-2 text-xs text-zinc-500">{{.CreatedAt}}</p>{{end}}
        </article>
        {{end}}
    </div>
</section>
{{end}}`,

	"login": `<div class="max-w-sm mx-auto mt-16 bg-zinc-800 rounded-lg p-6 border border-zinc-700">
    <h1 class="text-xl font-semibold text-center">Вход в аккаунт</h1>
    {{if .Error}}<p class="mt-3 text-sm text-red-400 text-center">{{.Error}}</p>{{end}}
    <p id="error" class="mt-3 text-sm text-red-400 text-center hidden"></p>
    <form class="mt-6 space-y-4" onsubmit="return doLogin(event)">
        <input id="login" type="text" placeholder="Логин" required
               class="w-full bg-zinc-900 border border-zinc-700 rounded px-3 py-2 text-sm">
        <input id="password" type="password" placeholder="Пароль" required
               class="w-full bg-zinc-900 border border-zinc-700 rounded px-3 py-2 text-sm">
        <button type="submit" class="w-full bg-amber-500 hover:bg-amber-400 text-zinc-900 font-medium py-2 rounded">
            Войти
        </button>
    </form>
</div>
<script>
async function doLogin(e) {
    e.preventDefault();
    const resp = await fetch('/api/v1/auth/login', {
        method: 'POST',
        headers: {'Content-Type': 'application/json'},
        body: JSON.stringify({
            login: document.getElementById('login').value,
            password: document.getElementById('password').value,
        }),
    });
    const body = await resp.json();
    if (resp.ok) {
        window.location = '/profile';
    } else {
        const el = document.getElementById('error');
        el.textContent = body.error ? body.error.message : 'Ошибка входа';
        el.classList.remove('hidden');
    }
    return false;
}
</script>`,

	"rules": `<h1 class="text-2xl font-semibold mb-6">Правила сервера</h1>
{{if not .Groups}}
<p class="text-zinc-400">Правила временно недоступны.</p>
{{end}}
{{range .Groups}}
<section class="mb-8">
    <h2 class="text-lg font-medium text-amber-300 mb-3">{{.Category.Label}}</h2>
    <ol class="space-y-2">
        {{range .Rules}}
        <li class="bg-zinc-800 rounded p-3 border border-zinc-700">
            <span class="font-medium">{{.Title}}</span>
            {{if .Description}}<p class="mt-1 text-sm text-zinc-400">{{.Description}}</p>{{end}}
        </li>
        {{end}}
    </ol>
</section>
{{end}}`,

	"profile": `<h1 class="text-2xl font-semibold mb-6">{{.User.Name}}</h1>
<div class="grid grid-cols-2 md:grid-cols-3 gap-4">
    <div class="bg-zinc-800 rounded-lg p-4 border border-zinc-700">
        <p class="text-xs text-zinc-500 uppercase">Деньги</p>
        <p class="mt-1 text-xl font-semibold text-green-400">${{comma .User.Money}}</p>
    </div>
    <div class="bg-zinc-800 rounded-lg p-4 border border-zinc-700">
        <p class="text-xs text-zinc-500 uppercase">Донат</p>
        <p class="mt-1 text-xl font-semibold text-amber-400">{{comma .User.Donate}}</p>
    </div>
    <div class="bg-zinc-800 rounded-lg p-4 border border-zinc-700">
        <p class="text-xs text-zinc-500 uppercase">Счёт</p>
        <p class="mt-1 text-xl font-semibold">{{comma .User.Score}}</p>
    </div>
    <div class="bg-zinc-800 rounded-lg p-4 border border-zinc-700">
        <p class="text-xs text-zinc-500 uppercase">Наиграно</p>
        <p class="mt-1 text-xl font-semibold">{{playtime .User.Lifetime}}</p>
    </div>
    {{if .Session.IsAdmin}}
    <div class="bg-zinc-800 rounded-lg p-4 border border-red-900">
        <p class="text-xs text-zinc-500 uppercase">Уровень админа</p>
        <p class="mt-1 text-xl font-semibold text-red-400">{{.User.AdminLevel}}</p>
    </div>
    {{end}}
</div>`,

	"cases": `<h1 class="text-2xl font-semibold mb-2">Кейсы</h1>
<p class="text-sm text-zinc-400 mb-6">
    Баланс: <span class="text-green-400">${{comma .User.Money}}</span> /
    <span class="text-amber-400">{{comma .User.Donate}} донат</span>
</p>
{{if .LoadError}}
<p class="text-red-400">Не удалось загрузить кейсы. Попробуйте позже.</p>
{{end}}
<div class="grid md:grid-cols-3 gap-4">
    {{range .Cases}}
    <div class="bg-zinc-800 rounded-lg p-4 border border-zinc-700">
        <h2 class="font-medium text-amber-300">{{.Name}}</h2>
        {{if .Description}}<p class="mt-1 text-sm text-zinc-400">{{truncate .Description 120}}</p>{{end}}
        <div class="mt-4 flex gap-2">
            {{if gt .PriceMoney 0}}
            <button onclick="openCase({{.ID}}, 'money')"
                    class="flex-1 bg-green-700 hover:bg-green-600 text-sm py-1.5 rounded">
                ${{comma .PriceMoney}}
            </button>
            {{end}}
            {{if gt .PriceDonate 0}}
            <button onclick="openCase({{.ID}}, 'donate')"
                    class="flex-1 bg-amber-600 hover:bg-amber-500 text-sm py-1.5 rounded">
                {{comma .PriceDonate}} донат
            </button>
            {{end}}
        </div>
    </div>
    {{end}}
</div>
<div id="result" class="mt-6"></div>
<script>
async function openCase(id, method) {
    const resp = await fetch('/api/v1/cases/' + id + '/open', {
        method: 'POST',
        headers: {'Content-Type': 'application/json'},
        body: JSON.stringify({method: method}),
    });
    const body = await resp.json();
    const el = document.getElementById('result');
    if (!resp.ok) {
        el.textContent = body.error ? body.error.message : 'Ошибка';
        return;
    }
    el.textContent = 'Кейс открывается...';
    const revealAt = new Date(body.data.reveal_at).getTime();
    setTimeout(claim, Math.max(0, revealAt - Date.now()));
}
async function claim() {
    const resp = await fetch('/api/v1/cases/claim', {method: 'POST'});
    const body = await resp.json();
    const el = document.getElementById('result');
    if (!resp.ok) {
        el.textContent = body.error ? body.error.message : 'Ошибка';
        return;
    }
    el.textContent = 'Выпало: ' + body.data.won_item.loot_name;
}
</script>`,

	"admin": `<h1 class="text-2xl font-semibold mb-6">Админ-панель</h1>
<div class="grid md:grid-cols-2 gap-4 mb-8">
    {{if .Online}}
    <div class="bg-zinc-800 rounded-lg p-4 border border-zinc-700">
        <p class="text-xs text-zinc-500 uppercase">Онлайн</p>
        <p class="mt-1 text-xl font-semibold">{{.Online.Online}} / {{.Online.MaxPlayers}}</p>
    </div>
    {{end}}
    {{if .Settings}}
    <div class="bg-zinc-800 rounded-lg p-4 border border-zinc-700">
        <p class="text-xs text-zinc-500 uppercase">Сервер</p>
        <p class="mt-1 text-xl font-semibold">{{index .Settings "server_name"}}</p>
    </div>
    {{end}}
</div>
<p class="text-sm text-zinc-400">
    Управление пользователями, правилами, новостями и блокировками — через
    <code class="text-amber-300">/api/v1/admin</code> или sampctl.
</p>`,
}
