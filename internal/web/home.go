package web

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Home lets a player pick sets and start a new game.
func Home(data HomeData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		writeHead(w, "Guess the Character")
		_, _ = io.WriteString(w, `      <header>
        <h1>Guess the Character</h1>
        <p>Describe the character without saying the forbidden words. `+itoa(data.Characters)+` characters available.</p>
      </header>
      <section class="panel">
        <h2>New game</h2>
        <form id="newGame">
          <fieldset>
            <legend>Sets</legend>
            <label><input type="radio" name="mode" value="all" checked/> All characters</label>
            <label><input type="radio" name="mode" value="sets"/> Only selected sets</label>
            <div>`)
		writeSetCheckboxes(w, "sets", data.Sets)
		_, _ = io.WriteString(w, `</div>
            <label><input type="checkbox" name="includeNoSet" checked/> Include characters without a set</label>
          </fieldset>
          <button type="submit" class="primary">Start game</button>
        </form>
        <p id="result"></p>
      </section>
    <script>
      const form = document.getElementById("newGame");
      form.addEventListener("submit", async (event) => {
        event.preventDefault();
        const restricted = form.elements.mode.value === "sets";
        const sets = Array.from(form.querySelectorAll("input[name=sets]:checked")).map((el) => el.value);
        const body = restricted
          ? { allowedSets: sets, includeNoSet: form.elements.includeNoSet.checked }
          : {};
        const res = await fetch("/api/games", {
          method: "POST",
          headers: { "Content-Type": "application/json" },
          body: JSON.stringify(body)
        });
        const data = await res.json();
        if (!res.ok) {
          document.getElementById("result").textContent = data.error || "Failed to create game.";
          return;
        }
        window.location.href = "/play/" + encodeURIComponent(data.id);
      });
    </script>
`)
		writeFoot(w)
		return nil
	})
}
