package web

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

func AdminCharacters(data AdminCharactersData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		writeHead(w, "Characters")
		writeFlash(w, data.Flash)
		_, _ = io.WriteString(w, `      <section class="panel">
        <h2>Add character</h2>
        <form method="post" action="/admin/characters" enctype="multipart/form-data">
          <p><input name="name" placeholder="Name" maxlength="120" required/></p>
          <p><input type="file" name="image" accept="image/*"/> or <input name="imageUrl" placeholder="Image URL"/></p>
          <p><input name="words" placeholder="Forbidden words, comma separated"/></p>
          <p>`)
		writeSetCheckboxes(w, "sets", data.Sets)
		_, _ = io.WriteString(w, `</p>
          <button type="submit" class="primary">Save</button>
        </form>
      </section>
      <section class="panel">
        <form method="get" action="/admin">
          <input name="q" value="`+esc(data.SearchQuery)+`" placeholder="Search by name"/>
          <button type="submit">Search</button>
        </form>
        <table>
          <thead><tr><th></th><th>Name</th><th>Forbidden words</th><th>Sets</th><th></th></tr></thead>
          <tbody>
`)
		if len(data.Characters) == 0 {
			_, _ = io.WriteString(w, `            <tr><td colspan="5">No characters yet.</td></tr>
`)
		}
		for _, character := range data.Characters {
			writeCharacterRow(w, character)
		}
		_, _ = io.WriteString(w, `          </tbody>
        </table>
`)
		writePagination(w, data.Pagination)
		_, _ = io.WriteString(w, `      </section>
`)
		writeFoot(w)
		return nil
	})
}

func writeCharacterRow(w io.Writer, character CharacterRow) {
	id := esc(character.ID)
	words := make([]string, 0, len(character.Words))
	for _, word := range character.Words {
		words = append(words, "<span>"+esc(word)+"</span>")
	}
	_, _ = io.WriteString(w, `            <tr>
              <td><img class="thumb" src="`+esc(character.ImageURL)+`" alt=""/></td>
              <td>`+esc(character.Name)+`<br/><small>`+formatTime(character.CreatedAt)+`</small></td>
              <td class="words">`+strings.Join(words, " ")+`</td>
              <td><form method="post" action="/admin/characters/`+id+`/sets">`)
	writeSetCheckboxes(w, "sets", character.Sets)
	_, _ = io.WriteString(w, `<button type="submit">Update</button></form></td>
              <td><form method="post" action="/admin/characters/`+id+`/delete"><button type="submit">Delete</button></form></td>
            </tr>
`)
}

func writePagination(w io.Writer, data PaginationData) {
	if data.TotalPages <= 1 {
		return
	}
	_, _ = io.WriteString(w, `        <p>`)
	if data.HasPrev {
		_, _ = io.WriteString(w, `<a href="`+esc(pageURL(data.BasePath, data.PrevPage, data.PerPage))+`">Previous</a> `)
	}
	_, _ = io.WriteString(w, `Page `+itoa(data.Page)+` of `+itoa(data.TotalPages))
	if data.HasNext {
		_, _ = io.WriteString(w, ` <a href="`+esc(pageURL(data.BasePath, data.NextPage, data.PerPage))+`">Next</a>`)
	}
	_, _ = io.WriteString(w, `</p>
`)
}

func AdminSets(data AdminSetsData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		writeHead(w, "Sets")
		writeFlash(w, data.Flash)
		_, _ = io.WriteString(w, `      <section class="panel">
        <h2>New set</h2>
        <form method="post" action="/admin/sets">
          <input name="name" placeholder="Set name" maxlength="120" required/>
          <button type="submit" class="primary">Create</button>
        </form>
      </section>
      <section class="panel">
        <table>
          <thead><tr><th>Name</th><th>Characters</th><th>Created</th><th></th></tr></thead>
          <tbody>
`)
		if len(data.Sets) == 0 {
			_, _ = io.WriteString(w, `            <tr><td colspan="4">No sets yet.</td></tr>
`)
		}
		for _, set := range data.Sets {
			id := esc(set.ID)
			_, _ = io.WriteString(w, `            <tr>
              <td><form method="post" action="/admin/sets/`+id+`"><input name="name" value="`+esc(set.Name)+`" maxlength="120"/><button type="submit">Rename</button></form></td>
              <td>`+itoa(set.Characters)+`</td>
              <td>`+formatTime(set.CreatedAt)+`</td>
              <td><form method="post" action="/admin/sets/`+id+`/delete"><button type="submit">Delete</button></form></td>
            </tr>
`)
		}
		_, _ = io.WriteString(w, `          </tbody>
        </table>
      </section>
`)
		writeFoot(w)
		return nil
	})
}
