package letter

import (
	"errors"
	"strings"
)

var ErrPageOutOfRange = errors.New("letter page out of range")

type Page struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Letter es una carta paginada; el destinatario lo aporta el flujo del visitante.
type Letter struct {
	pages []Page
}

// New crea una carta con las paginas dadas. Sin paginas usa DefaultPages.
func New(pages []Page) *Letter {
	if len(pages) == 0 {
		pages = DefaultPages
	}
	cp := make([]Page, len(pages))
	copy(cp, pages)
	return &Letter{pages: cp}
}

// View es una pagina lista para mostrar.
type View struct {
	RecipientName string   `json:"recipient_name"`
	Index         int      `json:"index"`
	Total         int      `json:"total"`
	Title         string   `json:"title"`
	Paragraphs    []string `json:"paragraphs"`
	HasPrev       bool     `json:"has_prev"`
	HasNext       bool     `json:"has_next"`
}

// Page devuelve la pagina index (base 0) dirigida a recipient.
func (l *Letter) Page(recipient string, index int) (View, error) {
	if index < 0 || index >= len(l.pages) {
		return View{}, ErrPageOutOfRange
	}
	p := l.pages[index]
	return View{
		RecipientName: recipient,
		Index:         index,
		Total:         len(l.pages),
		Title:         p.Title,
		Paragraphs:    paragraphs(p.Content),
		HasPrev:       index > 0,
		HasNext:       index < len(l.pages)-1,
	}, nil
}

func paragraphs(content string) []string {
	parts := strings.Split(content, "\n\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var DefaultPages = []Page{
	{
		Title: "Dear traveller",
		Content: `The moonlight of home still falls on the grey tiles of the old house. The locust tree in the yard flowered again this year, and its scent drifted over the whole village.

On quiet nights we think of you. Of you running down the lanes as a child, of your laughter chasing dragonflies along the field ridges.

Time has carried you far away, but your roots are still here, waiting for you.`,
	},
	{
		Title: "How home has changed",
		Content: `Home has changed a great deal. The old street was restored, and the weathered shop signs that hold our memories were kept. A new road now runs straight to the village gate, and the way back is shorter.

Young people have started coming back, bringing what they learned outside and what they dream of. Old crafts are being passed on and new trades are thriving.

Your name is carved on the stone at the village entrance. Everyone says it is children like you, working far away, who give home its strength.`,
	},
	{
		Title: "Waiting for you",
		Content: `However far you go, the lights of home stay lit for you. Here are the accents you know, the flavours you remember, and a door that is always open.

The new year is close. The cured meat already hangs from the beams and the rice wine is fermenting in its jar. Mother has prepared the dishes you love and waits for you to push open that door.

Come home, traveller. Home is always your warmest harbour.

With love,
Home`,
	},
}
