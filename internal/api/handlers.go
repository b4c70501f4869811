package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"chatdragon/internal/actors"
	"chatdragon/internal/director"
	"chatdragon/internal/llm"
)

type GetIntentRequest struct {
	Ask string `json:"ask"`
}

type NpcGenerateRequest struct {
	Ask string `json:"ask"`
}

type NpcGenerateResponse struct {
	NonPlayerCharacter *actors.NonPlayerCharacter `json:"nonPlayerCharacter"`
}

func (s *Server) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// getIntent returns the chosen function's text as the raw body. An empty
// body means the model proposed no function.
func (s *Server) getIntent(c echo.Context) error {
	var req GetIntentRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	result, err := s.intents.GetIntent(ctx, req.Ask)
	if err != nil {
		return toHTTPError(err)
	}

	return c.String(http.StatusOK, result)
}

func (s *Server) generateQuickNPC(c echo.Context) error {
	var req NpcGenerateRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	npc, err := s.npcs.GenerateQuick(ctx, req.Ask)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, NpcGenerateResponse{NonPlayerCharacter: npc})
}

func (s *Server) requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	ctx := c.Request().Context()
	if s.opts.RequestTimeout > 0 {
		return context.WithTimeout(ctx, s.opts.RequestTimeout)
	}
	return context.WithCancel(ctx)
}

// toHTTPError maps domain and upstream failures onto status codes. The
// original error is kept as the internal cause for logging.
func toHTTPError(err error) *echo.HTTPError {
	var (
		decodeErr *actors.DecodeError
		upstream  *llm.UpstreamError
	)

	var he *echo.HTTPError
	switch {
	case errors.Is(err, actors.ErrEmptyGeneration):
		he = echo.NewHTTPError(http.StatusUnprocessableEntity, actors.ErrEmptyGeneration.Error())
	case errors.As(err, &decodeErr):
		he = echo.NewHTTPError(http.StatusInternalServerError, "Failed to deserialize NPC.")
	case errors.Is(err, context.DeadlineExceeded):
		he = echo.NewHTTPError(http.StatusGatewayTimeout, "Completion service timed out.")
	case errors.As(err, &upstream),
		errors.Is(err, llm.ErrMalformedReply),
		errors.Is(err, director.ErrUnexpectedReply),
		errors.Is(err, director.ErrUnknownFunction),
		errors.Is(err, director.ErrInvalidArguments):
		he = echo.NewHTTPError(http.StatusBadGateway, "Completion service error.")
	default:
		he = echo.NewHTTPError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
	return he.SetInternal(err)
}
