package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/scorecard/internal/adapters/repository"
	service "github.com/okian/scorecard/internal/app"
	"github.com/okian/scorecard/internal/domain/ingest"
)

func TestStatusOf(t *testing.T) {
	Convey("Given errors from each layer", t, func() {
		cases := []struct {
			err    error
			status int
			code   string
		}{
			{fmt.Errorf("x: %w", repository.ErrNotFound), http.StatusNotFound, "not_found"},
			{repository.ErrConflict, http.StatusConflict, "conflict"},
			{repository.ErrInvalidLimit, http.StatusBadRequest, "bad_request"},
			{service.ErrSessionCompleted, http.StatusConflict, "session_completed"},
			{&service.IncompleteError{Missing: []string{"i1"}}, http.StatusUnprocessableEntity, "incomplete_session"},
			{service.ErrForbidden, http.StatusForbidden, "forbidden"},
			{service.ErrInvalidAccessCode, http.StatusUnauthorized, "unauthorized"},
			{fmt.Errorf("%w: bad", service.ErrInvalidInput), http.StatusBadRequest, "bad_request"},
			{ingest.ErrMalformed, http.StatusBadRequest, "bad_request"},
			{errors.New("disk on fire"), http.StatusInternalServerError, "internal_error"},
		}

		Convey("Then each maps to its status and code", func() {
			for _, c := range cases {
				status, code := statusOf(Wrap("api.test", c.err))
				So(status, ShouldEqual, c.status)
				So(code, ShouldEqual, c.code)
			}
		})
	})
}

func TestError(t *testing.T) {
	Convey("Given an operation-tagged error", t, func() {
		cause := errors.New("limit \"x\"")
		err := WrapKind("api.get_leaderboard", ErrBadRequest, cause)

		Convey("Then both kind and cause are visible to errors.Is", func() {
			So(errors.Is(err, ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, `api.get_leaderboard: bad request: limit "x"`)
		})

		Convey("Then NewKind and Wrap render without the missing parts", func() {
			So(NewKind("op", ErrUnauthorized).Error(), ShouldEqual, "op: unauthorized")
			So(Wrap("op", cause).Error(), ShouldEqual, `op: limit "x"`)
			So(Wrap("op", nil), ShouldBeNil)
		})
	})
}
