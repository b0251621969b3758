package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/walicode/api"
)

func TestCourseAPI(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api"+api.PathCoursePage, func(w http.ResponseWriter, r *http.Request) {
		var p api.CoursePageParams
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		writeJSON(w, http.StatusOK, ok(map[string]any{
			"records": []map[string]any{{"id": 1, "title": "Go " + p.Keyword, "memberOnly": true}},
			"total":   1, "current": p.PageNum, "size": p.PageSize,
		}))
	})
	r.Get("/api"+api.PathCourseChapters, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, ok([]map[string]any{
			{"id": "10", "courseId": r.URL.Query().Get("courseId"), "title": "Intro", "sort": 1},
		}))
	})
	r.Get("/api"+api.PathChapterContent, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("chapterId") != "10" {
			writeJSON(w, http.StatusOK, map[string]any{"errorCode": "404", "errorMsg": "chapter not found"})
			return
		}
		writeJSON(w, http.StatusOK, ok(map[string]any{"chapterId": 10, "title": "Intro", "content": "# hello"}))
	})
	courses := api.NewCourseAPI(setup(t, r, newJar(t, nil)))
	ctx := context.Background()

	page, err := courses.CoursePage(ctx, api.CoursePageParams{PageNum: 2, PageSize: 5, Keyword: "basics"})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "Go basics", page.Records[0].Title)
	assert.True(t, page.Records[0].MemberOnly)
	assert.Equal(t, int64(2), page.Current)
	assert.Equal(t, int64(5), page.Size)

	chapters, err := courses.CourseChapters(ctx, "1")
	require.NoError(t, err)
	require.Len(t, chapters, 1)
	assert.Equal(t, api.ID("1"), chapters[0].CourseID)

	content, err := courses.ChapterContent(ctx, "10")
	require.NoError(t, err)
	assert.Equal(t, api.ID("10"), content.ChapterID)
	assert.Equal(t, "# hello", content.Content)

	_, err = courses.ChapterContent(ctx, "99")
	assert.ErrorIs(t, err, api.ErrApplication)
	assert.EqualError(t, err, "chapter not found")
}
