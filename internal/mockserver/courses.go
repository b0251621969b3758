package mockserver

import (
	"slices"
	"strings"
	"sync"
)

type course struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Cover       string `json:"cover"`
	MemberOnly  bool   `json:"memberOnly"`
}

type chapter struct {
	ID       int64  `json:"id"`
	CourseID int64  `json:"courseId"`
	Title    string `json:"title"`
	Sort     int    `json:"sort"`
	content  string
}

type chapterContent struct {
	ChapterID int64  `json:"chapterId"`
	Title     string `json:"title"`
	Content   string `json:"content"`
}

type page struct {
	Records []course `json:"records"`
	Total   int64    `json:"total"`
	Current int64    `json:"current"`
	Size    int64    `json:"size"`
}

// catalogue is the read-mostly course listing.
type catalogue struct {
	mu       sync.RWMutex
	courses  []course
	chapters []chapter
}

func seedCatalogue() *catalogue {
	return &catalogue{
		courses: []course{
			{ID: 1, Title: "Go Basics", Description: "Syntax, types and the toolchain.", Cover: "/covers/go-basics.png"},
			{ID: 2, Title: "Concurrency in Go", Description: "Goroutines, channels and the sync package.", Cover: "/covers/concurrency.png", MemberOnly: true},
			{ID: 3, Title: "HTTP Services", Description: "Building APIs with net/http and chi.", Cover: "/covers/http.png"},
		},
		chapters: []chapter{
			{ID: 10, CourseID: 1, Title: "Hello, World", Sort: 1, content: "# Hello, World\n\n```go\nfmt.Println(\"hello\")\n```"},
			{ID: 11, CourseID: 1, Title: "Types", Sort: 2, content: "# Types\n\nBasic types, structs and interfaces."},
			{ID: 20, CourseID: 2, Title: "Goroutines", Sort: 1, content: "# Goroutines\n\nLightweight threads managed by the runtime."},
			{ID: 21, CourseID: 2, Title: "Channels", Sort: 2, content: "# Channels\n\nTyped conduits between goroutines."},
			{ID: 30, CourseID: 3, Title: "Handlers", Sort: 1, content: "# Handlers\n\nThe http.Handler interface."},
		},
	}
}

// list returns one page of courses whose title or description contains
// keyword, ignoring case. pageNum starts at 1.
func (c *catalogue) list(keyword string, pageNum, pageSize int) page {
	if pageNum < 1 {
		pageNum = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	kw := strings.ToLower(strings.TrimSpace(keyword))

	c.mu.RLock()
	defer c.mu.RUnlock()
	var matched []course
	for _, co := range c.courses {
		if kw == "" || strings.Contains(strings.ToLower(co.Title), kw) || strings.Contains(strings.ToLower(co.Description), kw) {
			matched = append(matched, co)
		}
	}
	p := page{Records: []course{}, Total: int64(len(matched)), Current: int64(pageNum), Size: int64(pageSize)}
	start := (pageNum - 1) * pageSize
	if start < len(matched) {
		end := min(start+pageSize, len(matched))
		p.Records = matched[start:end]
	}
	return p
}

func (c *catalogue) course(id int64) (course, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := slices.IndexFunc(c.courses, func(co course) bool { return co.ID == id })
	if i < 0 {
		return course{}, false
	}
	return c.courses[i], true
}

func (c *catalogue) chaptersOf(courseID int64) []chapter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []chapter{}
	for _, ch := range c.chapters {
		if ch.CourseID == courseID {
			out = append(out, ch)
		}
	}
	slices.SortFunc(out, func(a, b chapter) int { return a.Sort - b.Sort })
	return out
}

func (c *catalogue) chapter(id int64) (chapter, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := slices.IndexFunc(c.chapters, func(ch chapter) bool { return ch.ID == id })
	if i < 0 {
		return chapter{}, false
	}
	return c.chapters[i], true
}
