package web

import "time"

type SetOption struct {
	ID       string
	Name     string
	Selected bool
}

type CharacterRow struct {
	ID        string
	Name      string
	ImageURL  string
	Words     []string
	Sets      []SetOption
	CreatedAt time.Time
}

type SetRow struct {
	ID         string
	Name       string
	Characters int
	CreatedAt  time.Time
}

type PaginationData struct {
	BasePath   string
	Page       int
	PerPage    int
	Total      int
	TotalPages int
	HasPrev    bool
	HasNext    bool
	PrevPage   int
	NextPage   int
}

type AdminCharactersData struct {
	Characters  []CharacterRow
	Sets        []SetOption
	SearchQuery string
	Flash       string
	Pagination  PaginationData
}

type AdminSetsData struct {
	Sets  []SetRow
	Flash string
}

type HomeData struct {
	Sets       []SetOption
	Characters int
}

type PlayData struct {
	GameID  string
	PlayURL string
}
