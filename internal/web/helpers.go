package web

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"
)

func itoa(value int) string {
	return strconv.Itoa(value)
}

func esc(value string) string {
	return templ.EscapeString(value)
}

func pageURL(base string, page, perPage int) string {
	if strings.Contains(base, "?") {
		return base + "&page=" + itoa(page) + "&per_page=" + itoa(perPage)
	}
	return base + "?page=" + itoa(page) + "&per_page=" + itoa(perPage)
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.Format("2006-01-02 15:04:05")
}

const styles = `
      body { font-family: system-ui, sans-serif; margin: 0; background: #f6f4ef; color: #1d1d1f; }
      .shell { max-width: 960px; margin: 0 auto; padding: 24px; }
      nav a { margin-right: 16px; }
      .panel { background: #fff; border-radius: 12px; padding: 20px; margin: 16px 0; box-shadow: 0 1px 3px rgba(0,0,0,.08); }
      .flash { background: #fff4d6; border-radius: 8px; padding: 10px 14px; }
      .words span { display: inline-block; background: #ffe3e3; border-radius: 6px; padding: 2px 8px; margin: 2px; }
      .thumb { width: 64px; height: 64px; object-fit: cover; border-radius: 8px; }
      table { width: 100%; border-collapse: collapse; }
      td, th { text-align: left; padding: 8px; border-bottom: 1px solid #eee; vertical-align: top; }
      .primary { background: #1d1d1f; color: #fff; border: 0; border-radius: 8px; padding: 10px 18px; }
`

func writeHead(w io.Writer, title string) {
	_, _ = io.WriteString(w, `<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>`+esc(title)+`</title>
    <style>`+styles+`    </style>
  </head>
  <body>
    <main class="shell">
      <nav><a href="/">Play</a><a href="/admin">Characters</a><a href="/admin/sets">Sets</a></nav>
`)
}

func writeFoot(w io.Writer) {
	_, _ = io.WriteString(w, `    </main>
  </body>
</html>
`)
}

func writeFlash(w io.Writer, message string) {
	if message == "" {
		return
	}
	_, _ = io.WriteString(w, `      <p class="flash">`+esc(message)+`</p>
`)
}

func writeSetCheckboxes(w io.Writer, name string, sets []SetOption) {
	for _, set := range sets {
		checked := ""
		if set.Selected {
			checked = " checked"
		}
		_, _ = io.WriteString(w, `<label><input type="checkbox" name="`+esc(name)+`" value="`+esc(set.ID)+`"`+checked+`/> `+esc(set.Name)+`</label> `)
	}
}
