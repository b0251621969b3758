package api

import (
	"context"
	"net/url"
)

const (
	PathCoursePage     = "/course/coursePage"
	PathCourseChapters = "/course/courseChapters"
	PathChapterContent = "/course/getChapterContent"
)

type CoursePageParams struct {
	PageNum  int    `json:"pageNum"`
	PageSize int    `json:"pageSize"`
	Keyword  string `json:"keyword,omitempty"`
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Records []T   `json:"records"`
	Total   int64 `json:"total"`
	Current int64 `json:"current"`
	Size    int64 `json:"size"`
}

type Course struct {
	ID          ID     `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Cover       string `json:"cover,omitempty"`
	MemberOnly  bool   `json:"memberOnly"`
}

type Chapter struct {
	ID       ID     `json:"id"`
	CourseID ID     `json:"courseId"`
	Title    string `json:"title"`
	Sort     int    `json:"sort"`
}

type ChapterContent struct {
	ChapterID ID     `json:"chapterId"`
	Title     string `json:"title"`
	Content   string `json:"content"`
}

// CourseAPI wraps the course catalogue endpoints. Unlike AuthAPI it unwraps
// the envelope and reports non-zero error codes as errors.
type CourseAPI struct {
	c *Client
}

func NewCourseAPI(c *Client) *CourseAPI {
	return &CourseAPI{c: c}
}

func (a *CourseAPI) CoursePage(ctx context.Context, p CoursePageParams) (*Page[Course], error) {
	var env Envelope[Page[Course]]
	if err := a.c.Post(ctx, PathCoursePage, p, &env); err != nil {
		return nil, err
	}
	if err := env.Err(); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

func (a *CourseAPI) CourseChapters(ctx context.Context, courseID string) ([]Chapter, error) {
	var env Envelope[[]Chapter]
	q := url.Values{"courseId": {courseID}}
	if err := a.c.Get(ctx, PathCourseChapters, q, &env); err != nil {
		return nil, err
	}
	if err := env.Err(); err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (a *CourseAPI) ChapterContent(ctx context.Context, chapterID string) (*ChapterContent, error) {
	var env Envelope[ChapterContent]
	q := url.Values{"chapterId": {chapterID}}
	if err := a.c.Get(ctx, PathChapterContent, q, &env); err != nil {
		return nil, err
	}
	if err := env.Err(); err != nil {
		return nil, err
	}
	return &env.Data, nil
}
