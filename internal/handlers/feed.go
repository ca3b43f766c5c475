package handlers

import (
	"net/http"
	"strings"
	"time"

	"brainshare/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/feeds"
)

const feedSize = 30

type FeedHandler struct {
	eng     *services.Engine
	siteURL string
}

func NewFeedHandler(eng *services.Engine, siteURL string) *FeedHandler {
	return &FeedHandler{eng: eng, siteURL: strings.TrimRight(siteURL, "/")}
}

// RSS 最新帖子订阅，?subject= 按科目过滤
func (h *FeedHandler) RSS(c *gin.Context) {
	subject := strings.TrimSpace(c.Query("subject"))
	posts, err := h.eng.ListPosts(c.Request.Context(), subject, feedSize)
	if err != nil {
		respondError(c, err)
		return
	}

	title := "BrainShare"
	if subject != "" {
		title += " - " + subject
	}
	feed := &feeds.Feed{
		Title:       title,
		Link:        &feeds.Link{Href: h.siteURL + "/"},
		Description: "Latest questions and materials on BrainShare",
		Updated:     time.Now().UTC(),
	}
	for _, p := range posts {
		link := h.siteURL + "/posts/" + p.Pid
		item := &feeds.Item{
			Title:       p.Title,
			Link:        &feeds.Link{Href: link},
			Description: p.Excerpt,
			Id:          link,
			Created:     p.CreatedAt.UTC(),
		}
		if p.User.ID != 0 {
			item.Author = &feeds.Author{Name: p.User.Username}
		}
		feed.Items = append(feed.Items, item)
	}

	// 科目写入 <category>，feeds.Item 没有这个字段
	rss := (&feeds.Rss{Feed: feed}).RssFeed()
	rss.Language = "pt-br"
	for i, p := range posts {
		rss.Items[i].Category = p.Subject
	}
	out, err := feeds.ToXML(rss)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/rss+xml; charset=utf-8", []byte(out))
}
