package web

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Play renders the pass-the-device page. The session itself runs on the
// server and is driven over the game websocket.
func Play(data PlayData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		writeHead(w, "Play")
		_, _ = io.WriteString(w, `      <section class="panel" id="game" data-game-id="`+esc(data.GameID)+`">
        <p id="status">Connecting...</p>
        <h2 id="name"></h2>
        <img id="image" alt="" style="max-width:100%;display:none"/>
        <p class="words" id="words"></p>
        <p id="countdown"></p>
        <button id="primary" class="primary" disabled>Start</button>
        <button id="pause" style="display:none">Pause</button>
      </section>
      <section class="panel">
        <p>Continue on another device: <a href="`+esc(data.PlayURL)+`">`+esc(data.PlayURL)+`</a></p>
        <img src="/games/`+esc(data.GameID)+`/qr" alt="QR code" width="160" height="160"/>
      </section>
    <script>
      const root = document.getElementById("game");
      const gameId = root.dataset.gameId;
      const scheme = window.location.protocol === "https:" ? "wss://" : "ws://";
      const socket = new WebSocket(scheme + window.location.host + "/ws/games/" + encodeURIComponent(gameId));
      const status = document.getElementById("status");
      const nameEl = document.getElementById("name");
      const image = document.getElementById("image");
      const words = document.getElementById("words");
      const countdown = document.getElementById("countdown");
      const primary = document.getElementById("primary");
      const pause = document.getElementById("pause");
      let action = "start";

      const labels = {
        lobby: ["Start", "start", "Ready when you are."],
        pass: ["I'm ready", "ready", "Pass the device to the next describer."],
        countdown: ["", "", "Get ready..."],
        describe: ["Next", "next", "Describe the character!"],
        gameover: ["", "", "No characters left. Game over!"]
      };

      socket.addEventListener("message", (event) => {
        const state = JSON.parse(event.data);
        if (state.error) {
          status.textContent = state.error;
          return;
        }
        const [label, next, text] = labels[state.phase] || ["", "", state.phase];
        status.textContent = text + " (" + state.remaining + " left)";
        action = next;
        primary.textContent = label;
        primary.disabled = !next;
        primary.style.display = next ? "" : "none";
        pause.style.display = state.phase === "describe" ? "" : "none";
        countdown.textContent = state.phase === "countdown" ? String(state.countdown) : "";
        const showCard = state.phase === "describe" && state.current;
        nameEl.textContent = showCard ? state.current.name : "";
        image.style.display = showCard ? "" : "none";
        if (showCard) {
          image.src = state.current.imageUrl;
          words.innerHTML = "";
          for (const word of state.current.forbiddenWords || []) {
            const span = document.createElement("span");
            span.textContent = word;
            words.appendChild(span);
          }
        } else {
          words.innerHTML = "";
        }
      });
      socket.addEventListener("close", () => {
        status.textContent = "Disconnected.";
        primary.disabled = true;
      });
      primary.addEventListener("click", () => {
        if (action) socket.send(JSON.stringify({ type: action }));
      });
      pause.addEventListener("click", () => socket.send(JSON.stringify({ type: "pause" })));
    </script>
`)
		writeFoot(w)
		return nil
	})
}
