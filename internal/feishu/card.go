package feishu

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Paper is the rendered view of one enriched paper. The delivery layer
// only ever reads these fields; enrichment happens upstream.
type Paper struct {
	ArxivID      string
	Title        string
	Authors      []string
	Affiliations []string
	Score        *float64
	TLDR         string
	AbsURL       string
	PDFURL       string
	CodeURL      string
	FigureURL    string
}

// Interactive-card message shapes for the webhook API.
type message struct {
	MsgType   string `json:"msg_type"`
	Card      card   `json:"card"`
	Timestamp string `json:"timestamp,omitempty"`
	Sign      string `json:"sign,omitempty"`
}

type card struct {
	Schema string     `json:"schema"`
	Header cardHeader `json:"header"`
	Body   cardBody   `json:"body"`
}

type cardHeader struct {
	Title    textBlock `json:"title"`
	Template string    `json:"template"`
}

type textBlock struct {
	Tag     string `json:"tag"`
	Content string `json:"content"`
}

type cardBody struct {
	Elements []element `json:"elements"`
}

// element covers the markdown, hr and action shapes; unused fields are
// omitted from the encoding.
type element struct {
	Tag     string   `json:"tag"`
	Content string   `json:"content,omitempty"`
	Actions []button `json:"actions,omitempty"`
}

type button struct {
	Tag  string    `json:"tag"`
	Text textBlock `json:"text"`
	Type string    `json:"type"`
	URL  string    `json:"url"`
}

func markdown(content string) element {
	return element{Tag: "markdown", Content: content}
}

func divider() element {
	return element{Tag: "hr"}
}

// Relevance-score band for the star rating.
const (
	starsLow  = 6.0
	starsHigh = 8.0
)

// StarsText renders a relevance score as a star rating. Scores at or below
// the low bound render as nothing, scores at or above the high bound as
// five full stars, and the band in between in half-star steps.
func StarsText(score float64) string {
	if score <= starsLow {
		return ""
	}
	if score >= starsHigh {
		return strings.Repeat("⭐", 5)
	}
	interval := (starsHigh - starsLow) / 10
	starNum := int(math.Ceil((score - starsLow) / interval))
	fullStars := starNum / 2
	out := strings.Repeat("⭐", fullStars)
	if starNum%2 != 0 {
		out += "½"
	}
	return out
}

// authorLine joins the author names, eliding the middle of long lists.
func authorLine(authors []string) string {
	if len(authors) <= 5 {
		return strings.Join(authors, ", ")
	}
	elided := append(append([]string{}, authors[:3]...), "...")
	elided = append(elided, authors[len(authors)-2:]...)
	return strings.Join(elided, ", ")
}

// affiliationLine joins up to five affiliations, marking overflow. A paper
// without resolved affiliations renders a fixed placeholder.
func affiliationLine(affiliations []string) string {
	if affiliations == nil {
		return "Unknown Affiliation"
	}
	shown := affiliations
	if len(shown) > 5 {
		shown = shown[:5]
	}
	out := strings.Join(shown, ", ")
	if len(affiliations) > 5 {
		out += ", ..."
	}
	return out
}

// paperElements renders one paper as a card section ending in a divider.
func paperElements(paper Paper, index int) []element {
	elements := []element{
		markdown(fmt.Sprintf("**%d. %s**", index, paper.Title)),
		markdown(fmt.Sprintf("👤 %s\n🏛️ *%s*", authorLine(paper.Authors), affiliationLine(paper.Affiliations))),
	}

	if paper.Score != nil {
		if stars := StarsText(*paper.Score); stars != "" {
			elements = append(elements, markdown("**Relevance:** "+stars))
		}
	}

	elements = append(elements, markdown("📝 **TLDR:** "+paper.TLDR))
	elements = append(elements, markdown(fmt.Sprintf("🔗 arXiv: [%s](%s)", paper.ArxivID, paper.AbsURL)))

	if paper.FigureURL != "" {
		elements = append(elements, markdown(fmt.Sprintf("🖼️ [Framework figure](%s)", paper.FigureURL)))
	}

	buttons := []button{{
		Tag:  "button",
		Text: textBlock{Tag: "plain_text", Content: "📄 PDF"},
		Type: "primary",
		URL:  paper.PDFURL,
	}}
	if paper.CodeURL != "" {
		buttons = append(buttons, button{
			Tag:  "button",
			Text: textBlock{Tag: "plain_text", Content: "💻 Code"},
			Type: "default",
			URL:  paper.CodeURL,
		})
	}
	elements = append(elements, element{Tag: "action", Actions: buttons})
	elements = append(elements, divider())

	return elements
}

func emptyCard() message {
	return message{
		MsgType: "interactive",
		Card: card{
			Schema: "2.0",
			Header: cardHeader{
				Title:    textBlock{Tag: "plain_text", Content: "📚 Daily arXiv 推荐"},
				Template: "blue",
			},
			Body: cardBody{Elements: []element{
				markdown("**今日没有新论文，休息一下吧！** 🎉"),
			}},
		},
	}
}

func fullCard(papers []Paper, now time.Time) message {
	elements := []element{
		markdown(fmt.Sprintf("共推荐 **%d** 篇论文，按相关度排序", len(papers))),
		divider(),
	}
	for i, paper := range papers {
		elements = append(elements, paperElements(paper, i+1)...)
	}

	return message{
		MsgType: "interactive",
		Card: card{
			Schema: "2.0",
			Header: cardHeader{
				Title:    textBlock{Tag: "plain_text", Content: "📚 Daily arXiv 推荐 - " + now.Format("2006/01/02")},
				Template: "blue",
			},
			Body: cardBody{Elements: elements},
		},
	}
}
