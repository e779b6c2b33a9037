package audio

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"

	brewy "github.com/code-brew-house/brewy-backend-sub001"
)

// WebhookSecretHeader carries the shared callback credential.
const WebhookSecretHeader = "X-Webhook-Secret"

// FileNameQueryParam names the uploaded file; the body is the raw audio bytes.
const FileNameQueryParam = "file_name"

// ControllerRoutes are the mounted paths for the audio surface.
type ControllerRoutes struct {
	Submit   string
	Callback string
	Get      string
	List     string
}

type Controller struct {
	Logger       brewy.Logger
	Service      *Service
	Routes       *ControllerRoutes
	ErrorHandler func(router.Context, error) error
}

type ControllerOption func(*Controller) *Controller

// WithControllerLogger sets the controller logger.
func WithControllerLogger(logger brewy.Logger) ControllerOption {
	return func(c *Controller) *Controller {
		c.Logger = logger
		return c
	}
}

// WithControllerService sets the workflow service.
func WithControllerService(service *Service) ControllerOption {
	return func(c *Controller) *Controller {
		c.Service = service
		return c
	}
}

func NewController(opts ...ControllerOption) *Controller {
	c := &Controller{
		ErrorHandler: brewy.RenderError,
		Routes: &ControllerRoutes{
			Submit:   "/audio",
			Callback: "/audio/callback",
			Get:      "/audio/:id",
			List:     "/audio",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Service == nil {
		panic("Missing Service in audio controller...")
	}

	if c.Logger == nil {
		_, c.Logger = brewy.ResolveLogger("audio.controller", nil, nil)
	}

	return c
}

// RegisterAudioRoutes mounts the audio surface. The callback route stays
// unprotected; it authenticates with the webhook secret instead.
func RegisterAudioRoutes[T any](app router.Router[T], protect router.MiddlewareFunc, opts ...ControllerOption) *Controller {
	controller := NewController(opts...)

	app.Post(controller.Routes.Submit, protect(controller.SubmitPost)).
		SetName("audio.submit.post")

	app.Post(controller.Routes.Callback, controller.CallbackPost).
		SetName("audio.callback.post")

	app.Get(controller.Routes.Get, protect(controller.JobGet)).
		SetName("audio.job.get")

	app.Get(controller.Routes.List, protect(controller.JobList)).
		SetName("audio.jobs.get")

	return controller
}

func (a *Controller) SubmitPost(ctx router.Context) error {
	principal, ok := brewy.PrincipalFromRouterContext(ctx)
	if !ok {
		return a.ErrorHandler(ctx, brewy.ErrAuthenticationRequired)
	}

	fileName := ctx.Query(FileNameQueryParam, "")
	if fileName == "" {
		return a.ErrorHandler(ctx, goerrors.New("missing file_name query parameter", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest))
	}

	content := ctx.Body()
	upload := Upload{
		FileName: fileName,
		Size:     int64(len(content)),
		Content:  content,
	}

	job, err := a.Service.Submit(ctx.Context(), principal, upload)
	if err != nil {
		a.Logger.Error("audio submit", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, job)
}

func (a *Controller) CallbackPost(ctx router.Context) error {
	payload := CallbackPayload{}
	if err := ctx.Bind(&payload); err != nil {
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse callback body").
			WithCode(goerrors.CodeBadRequest))
	}

	secret := ctx.Header(WebhookSecretHeader)

	job, err := a.Service.HandleCallback(ctx.Context(), secret, payload)
	if err != nil {
		a.Logger.Error("audio callback", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, job)
}

func (a *Controller) JobGet(ctx router.Context) error {
	principal, ok := brewy.PrincipalFromRouterContext(ctx)
	if !ok {
		return a.ErrorHandler(ctx, brewy.ErrAuthenticationRequired)
	}

	id, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return a.ErrorHandler(ctx, goerrors.New("invalid job id", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest))
	}

	job, err := a.Service.Get(ctx.Context(), principal, id)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, job)
}

func (a *Controller) JobList(ctx router.Context) error {
	principal, ok := brewy.PrincipalFromRouterContext(ctx)
	if !ok {
		return a.ErrorHandler(ctx, brewy.ErrAuthenticationRequired)
	}

	hints := brewy.HintsFromRouterContext(ctx)
	limit := ctx.QueryInt("limit", 50)
	offset := ctx.QueryInt("offset", 0)

	jobs, err := a.Service.List(ctx.Context(), principal, hints, limit, offset)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"items": jobs,
		"count": len(jobs),
	})
}
