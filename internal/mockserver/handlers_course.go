package mockserver

import (
	"fmt"
	"net/http"
	"strconv"
)

type coursePageRequest struct {
	PageNum  int    `json:"pageNum"`
	PageSize int    `json:"pageSize"`
	Keyword  string `json:"keyword"`
}

func queryID(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("%s: %w", name, errMissingParam)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, errMissingParam)
	}
	return id, nil
}

// CoursePage lists courses, optionally filtered by keyword.
func (s *Server) CoursePage(w http.ResponseWriter, r *http.Request) {
	var req coursePageRequest
	if !decodeBody(r, &req) {
		writeFail(w, http.StatusOK, codeBadRequest, "invalid request body")
		return
	}
	writeOK(w, s.catalogue.list(req.Keyword, req.PageNum, req.PageSize))
}

// CourseChapters lists a course's chapters in order. Listing is public.
func (s *Server) CourseChapters(w http.ResponseWriter, r *http.Request) {
	id, err := queryID(r, "courseId")
	if err != nil {
		writeFail(w, http.StatusOK, codeBadRequest, err.Error())
		return
	}
	if _, ok := s.catalogue.course(id); !ok {
		mapError(w, fmt.Errorf("course %d: %w", id, errNotFound))
		return
	}
	writeOK(w, s.catalogue.chaptersOf(id))
}

// ChapterContent returns a chapter body. Chapters of member-only courses
// need a member account.
func (s *Server) ChapterContent(w http.ResponseWriter, r *http.Request) {
	id, err := queryID(r, "chapterId")
	if err != nil {
		writeFail(w, http.StatusOK, codeBadRequest, err.Error())
		return
	}
	ch, ok := s.catalogue.chapter(id)
	if !ok {
		mapError(w, fmt.Errorf("chapter %d: %w", id, errNotFound))
		return
	}
	co, _ := s.catalogue.course(ch.CourseID)
	if co.MemberOnly {
		sess, _ := sessionFromContext(r.Context())
		u, ok := s.users.get(sess.UserID)
		if !ok || u.Member == "" || u.Member == "0" {
			mapError(w, errMembersOnly)
			return
		}
	}
	writeOK(w, chapterContent{ChapterID: ch.ID, Title: ch.Title, Content: ch.content})
}
