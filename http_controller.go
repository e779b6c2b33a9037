package brewy

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// AuthControllerRoutes are the mounted paths for the auth surface.
type AuthControllerRoutes struct {
	Login              string
	Logout             string
	Register           string
	Me                 string
	SwitchOrganization string
	Users              string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Auther       Authenticator
	Hasher       PasswordHasher
	Routes       *AuthControllerRoutes
	ErrorHandler func(router.Context, error) error
}

type AuthControllerOption func(*AuthController) *AuthController

// WithControllerLogger sets the controller logger.
func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = logger
		return c
	}
}

// WithControllerRepo sets the repository manager.
func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

// WithControllerAuther sets the authenticator.
func WithControllerAuther(auther Authenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

// WithControllerHasher sets the password hasher.
func WithControllerHasher(hasher PasswordHasher) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Hasher = hasher
		return c
	}
}

// WithControllerDebug toggles payload debug logging.
func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defaultLogger(),
		ErrorHandler: RenderError,
		Routes: &AuthControllerRoutes{
			Login:              "/auth/login",
			Logout:             "/auth/logout",
			Register:           "/auth/register",
			Me:                 "/auth/me",
			SwitchOrganization: "/auth/switch-organization",
			Users:              "/users",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.Hasher == nil {
		panic("Missing PasswordHasher in auth controller...")
	}

	return c
}

// RegisterAuthRoutes mounts the auth surface. The protect middleware wraps
// every route that requires an authenticated principal.
func RegisterAuthRoutes[T any](app router.Router[T], protect router.MiddlewareFunc, opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Register, controller.RegisterPost).
		SetName("auth.register.post")

	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("auth.login.post")

	app.Post(controller.Routes.Logout, protect(controller.LogoutPost)).
		SetName("auth.logout.post")

	app.Get(controller.Routes.Me, protect(controller.MeGet)).
		SetName("auth.me.get")

	app.Post(controller.Routes.SwitchOrganization, protect(controller.SwitchOrganizationPost)).
		SetName("auth.switch-org.post")

	app.Post(controller.Routes.Users, protect(controller.UserCreatePost)).
		SetName("users.create.post")

	return controller
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
}

// GetIdentifier returns the identifier, an email or username.
func (r LoginRequest) GetIdentifier() string {
	return r.Identifier
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
			validation.Length(3, 100),
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

// LoginResponse carries the issued bearer token.
type LoginResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int    `json:"expires_in"`
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return RenderValidationError(ctx, err)
	}

	if a.Debug {
		debugPayload(a.Logger, "auth login", payload)
	}

	token, err := a.Auther.Login(ctx.Context(), payload.GetIdentifier(), payload.GetPassword())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, LoginResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int(a.Auther.TokenService().TTL().Seconds()),
	})
}

func (a *AuthController) LogoutPost(ctx router.Context) error {
	principal, ok := PrincipalFromRouterContext(ctx)
	if !ok {
		return a.ErrorHandler(ctx, ErrAuthenticationRequired)
	}

	if err := a.Auther.Logout(ctx.Context(), principal.UserID); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"success": true})
}

// MeResponse is the authenticated principal snapshot.
type MeResponse struct {
	UserID         string `json:"user_id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	OrganizationID string `json:"organization_id,omitempty"`
}

func (a *AuthController) MeGet(ctx router.Context) error {
	principal, ok := PrincipalFromRouterContext(ctx)
	if !ok {
		return a.ErrorHandler(ctx, ErrAuthenticationRequired)
	}

	resp := MeResponse{
		UserID:   principal.UserID.String(),
		Username: principal.Username,
		Email:    principal.Email,
		Role:     principal.Role,
	}

	if principal.OrganizationID != uuid.Nil {
		resp.OrganizationID = principal.OrganizationID.String()
	}

	return ctx.JSON(router.StatusOK, resp)
}

// RegisterOwnerPayload is the open bootstrap registration payload.
type RegisterOwnerPayload struct {
	FullName         string `form:"full_name" json:"full_name"`
	Username         string `form:"username" json:"username"`
	Email            string `form:"email" json:"email"`
	Phone            string `form:"phone_number" json:"phone_number"`
	Password         string `form:"password" json:"password"`
	ConfirmPassword  string `form:"confirm_password" json:"confirm_password"`
	OrganizationName string `form:"organization_name" json:"organization_name"`
	MaxUsers         int    `form:"max_users" json:"max_users"`
}

// Validate will validate the payload
func (r RegisterOwnerPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FullName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Username, validation.Match(usernamePattern)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
		validation.Field(&r.OrganizationName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.MaxUsers, validation.Min(0)),
	)
}

func (a *AuthController) RegisterPost(ctx router.Context) error {
	payload := new(RegisterOwnerPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register parse payload", "error", err)
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register validate payload", "error", err)
		return RenderValidationError(ctx, err)
	}

	req := RegisterOwnerMessage{
		FullName:         payload.FullName,
		Username:         payload.Username,
		Email:            payload.Email,
		Phone:            payload.Phone,
		Password:         payload.Password,
		OrganizationName: payload.OrganizationName,
		MaxUsers:         payload.MaxUsers,
	}

	handler := NewRegisterOwnerHandler(a.Repo, a.Hasher)
	if err := handler.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("register owner", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, map[string]any{"success": true})
}

// AddUserPayload is the delegated user creation payload.
type AddUserPayload struct {
	FullName       string `form:"full_name" json:"full_name"`
	Username       string `form:"username" json:"username"`
	Email          string `form:"email" json:"email"`
	Phone          string `form:"phone_number" json:"phone_number"`
	Password       string `form:"password" json:"password"`
	Role           string `form:"role" json:"role"`
	OrganizationID string `form:"organization_id" json:"organization_id"`
}

// Validate will validate the payload
func (r AddUserPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FullName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Username, validation.Match(usernamePattern)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(&r.Role, validation.In(roleValues()...)),
		validation.Field(&r.OrganizationID, is.UUID),
	)
}

func (a *AuthController) UserCreatePost(ctx router.Context) error {
	principal, ok := PrincipalFromRouterContext(ctx)
	if !ok {
		return a.ErrorHandler(ctx, ErrAuthenticationRequired)
	}

	payload := new(AddUserPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("user create parse payload", "error", err)
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("user create validate payload", "error", err)
		return RenderValidationError(ctx, err)
	}

	if a.Debug {
		debugPayload(a.Logger, "user create", payload)
	}

	req := AddUserMessage{
		Creator:        principal,
		FullName:       payload.FullName,
		Username:       payload.Username,
		Email:          payload.Email,
		Phone:          payload.Phone,
		Password:       payload.Password,
		Role:           payload.Role,
		OrganizationID: payload.OrganizationID,
	}

	handler := NewAddUserHandler(a.Repo, a.Hasher)
	if err := handler.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("user create", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, map[string]any{"success": true})
}

// SwitchOrganizationPayload carries the target organization.
type SwitchOrganizationPayload struct {
	OrganizationID string `form:"organization_id" json:"organization_id"`
}

// Validate will validate the payload
func (r SwitchOrganizationPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OrganizationID, validation.Required, is.UUID),
	)
}

func (a *AuthController) SwitchOrganizationPost(ctx router.Context) error {
	principal, ok := PrincipalFromRouterContext(ctx)
	if !ok {
		return a.ErrorHandler(ctx, ErrAuthenticationRequired)
	}

	payload := new(SwitchOrganizationPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("switch organization parse payload", "error", err)
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse request body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return RenderValidationError(ctx, err)
	}

	orgID, err := uuid.Parse(payload.OrganizationID)
	if err != nil {
		return RenderValidationError(ctx, validation.Errors{
			"organization_id": errors.New("must be a valid UUID"),
		})
	}

	token, err := a.Auther.SwitchOrganization(ctx.Context(), principal.UserID, orgID)
	if err != nil {
		a.Logger.Error("switch organization", "error", err, "user_id", principal.UserID.String())
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, LoginResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int(a.Auther.TokenService().TTL().Seconds()),
	})
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

func roleValues() []any {
	return []any{RoleSuperOwner, RoleOwner, RoleAdmin, RoleAgent}
}
