package domain

import (
	"regexp"

	"github.com/tidwall/gjson"
)

var twitterHandle = regexp.MustCompile(`https://twitter\.com/([a-zA-Z0-9_]+)`)

// DisplayHandle extracts the account handle from a twitter profile URL.
// Anything that does not contain such a URL is returned unchanged.
func DisplayHandle(url string) string {
	if m := twitterHandle.FindStringSubmatch(url); len(m) > 1 && m[1] != "" {
		return m[1]
	}
	return url
}

// ProjectCard is what the browsing UI shows for one application.
type ProjectCard struct {
	GrantID            uint64 `json:"grant_id"`
	ProjectID          uint64 `json:"project_id"`
	ProjectName        string `json:"project_name"`
	ProjectDescription string `json:"project_description"`
	ImageURL           string `json:"image_url"`
	Twitter            string `json:"twitter"`
	TwitterHandle      string `json:"twitter_handle"`
	MatchingAmount     uint64 `json:"matching_amount"`
	IsAccepted         bool   `json:"is_accepted"`
	VoteCount          int    `json:"vote_count"`
}

// BuildCard reads display fields out of the application's data. Data that
// is not a JSON object yields an empty name and description.
func BuildCard(g *Grant, p *Project) ProjectCard {
	card := ProjectCard{
		GrantID:        p.GrantID,
		ProjectID:      p.ID,
		MatchingAmount: g.Amount,
		IsAccepted:     p.IsAccepted,
		VoteCount:      len(p.Votes),
	}

	if !gjson.Valid(p.Data) {
		return card
	}
	doc := gjson.Parse(p.Data)
	if !doc.IsObject() {
		return card
	}

	card.ProjectName = doc.Get("name").String()
	card.ProjectDescription = doc.Get("description").String()
	card.ImageURL = firstString(doc, "imageUrl", "image_url", "image")
	card.Twitter = doc.Get("twitter").String()
	card.TwitterHandle = DisplayHandle(card.Twitter)
	return card
}

func firstString(doc gjson.Result, paths ...string) string {
	for _, p := range paths {
		r := doc.Get(p)
		if r.Exists() && r.String() != "" {
			return r.String()
		}
	}
	return ""
}
