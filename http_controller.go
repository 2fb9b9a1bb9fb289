package auth

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// HTTPController exposes the authentication use cases as a JSON API. It is a
// thin binding layer; every decision lives in the orchestrator.
type HTTPController struct {
	Debug  bool
	Logger Logger
	auther *Auther
}

// NewHTTPController creates a JSON controller over the given orchestrator.
func NewHTTPController(auther *Auther) *HTTPController {
	if auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	return &HTTPController{
		Logger: defLogger{},
		auther: auther,
	}
}

// WithLogger overrides the controller logger.
func (c *HTTPController) WithLogger(logger Logger) *HTTPController {
	if logger != nil {
		c.Logger = logger
	}
	return c
}

// WithDebug enables payload dumps on bind and auth failures.
func (c *HTTPController) WithDebug() *HTTPController {
	c.Debug = true
	return c
}

// RegisterRoutes mounts the auth endpoints on the given group. The federated
// endpoint trusts its payload; mount it behind the provider callback glue
// that completed the upstream handshake, never on a public surface.
func (c *HTTPController) RegisterRoutes(group RouteRegistrar) {
	group.Post("/register", c.Register)
	group.Post("/login", c.Login)
	group.Post("/federated", c.FederatedLogin)
	group.Post("/logout", c.Logout)
	group.Post("/refresh", c.Refresh)
	group.Post("/password/forgot", c.ForgotPassword)
	group.Post("/password/reset", c.ResetPassword)
	group.Post("/password/change", c.ChangePassword)
	group.Get("/me", c.Me)
}

// RegisterAdminRoutes mounts account administration endpoints. Pass a
// RequireAuth guard with a RoleAdmin minimum; the handlers only resolve the
// acting admin from the bearer, they do not re-check its role.
func (c *HTTPController) RegisterAdminRoutes(group RouteRegistrar, mw ...router.MiddlewareFunc) {
	group.Get("/accounts", c.ListAccounts, mw...)
	group.Post("/accounts/:id/role", c.SetAccountRole, mw...)
	group.Post("/accounts/:id/status", c.SetAccountStatus, mw...)
}

// RegisterPayload is the registration body.
type RegisterPayload struct {
	FirstName       string `form:"first_name" json:"first_name"`
	LastName        string `form:"last_name" json:"last_name"`
	Email           string `form:"email" json:"email"`
	Phone           string `form:"phone_number" json:"phone_number"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
	Gender          string `form:"gender" json:"gender"`
	Address         string `form:"address" json:"address"`
	City            string `form:"city" json:"city"`
	State           string `form:"state" json:"state"`
	ZipCode         string `form:"zip_code" json:"zip_code"`
	Country         string `form:"country" json:"country"`
	DateOfBirth     string `form:"date_of_birth" json:"date_of_birth"`
}

// Validate will run validation rules
func (r RegisterPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Phone, validation.By(ValidatePhoneNumber("US"))),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
		validation.Field(&r.DateOfBirth, validation.Date("2006-01-02")),
	)
}

func (c *HTTPController) Register(ctx router.Context) error {
	payload := new(RegisterPayload)

	if err := ctx.Bind(payload); err != nil {
		return c.bindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return c.validationError(ctx, err)
	}

	req := RegisterRequest{
		FirstName:       payload.FirstName,
		LastName:        payload.LastName,
		Email:           payload.Email,
		Phone:           payload.Phone,
		Password:        payload.Password,
		ConfirmPassword: payload.ConfirmPassword,
		Gender:          payload.Gender,
		Address:         payload.Address,
		City:            payload.City,
		State:           payload.State,
		ZipCode:         payload.ZipCode,
		Country:         payload.Country,
	}

	if payload.DateOfBirth != "" {
		if dob, err := time.Parse("2006-01-02", payload.DateOfBirth); err == nil {
			req.DateOfBirth = &dob
		}
	}

	result, err := c.auther.Register(ctx.Context(), req)
	if err != nil {
		return c.authError(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, result)
}

// LoginPayload is the native credential body.
type LoginPayload struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (c *HTTPController) Login(ctx router.Context) error {
	payload := new(LoginPayload)

	if err := ctx.Bind(payload); err != nil {
		return c.bindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return c.validationError(ctx, err)
	}

	if c.Debug {
		fmt.Println("======= AUTH LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(map[string]string{"email": payload.Email}))
		fmt.Println("=========================")
	}

	result, err := c.auther.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return c.authError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, result)
}

// FederatedPayload carries the verified claims of an upstream provider.
type FederatedPayload struct {
	Subject      string `json:"subject"`
	Email        string `json:"email"`
	GivenName    string `json:"given_name"`
	FamilyName   string `json:"family_name"`
	Picture      string `json:"picture"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (c *HTTPController) FederatedLogin(ctx router.Context) error {
	payload := new(FederatedPayload)

	if err := ctx.Bind(payload); err != nil {
		return c.bindError(ctx, err)
	}

	claims := ProviderClaims{
		Subject:      payload.Subject,
		Email:        payload.Email,
		GivenName:    payload.GivenName,
		FamilyName:   payload.FamilyName,
		Picture:      payload.Picture,
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
	}

	result, err := c.auther.FederatedLogin(ctx.Context(), claims)
	if err != nil {
		return c.authError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, result)
}

func (c *HTTPController) Logout(ctx router.Context) error {
	_, accountID, err := c.bearerClaims(ctx)
	if err != nil {
		return c.authError(ctx, err)
	}

	if _, err := c.auther.Logout(ctx.Context(), accountID); err != nil {
		return c.authError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"status": "logged_out",
	})
}

func (c *HTTPController) Refresh(ctx router.Context) error {
	_, accountID, err := c.bearerClaims(ctx)
	if err != nil {
		return c.authError(ctx, err)
	}

	result, err := c.auther.RefreshToken(ctx.Context(), accountID)
	if err != nil {
		return c.authError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, result)
}

// ForgotPasswordPayload holds the reset request body.
type ForgotPasswordPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will run validation rules
func (r ForgotPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

// ForgotPassword always answers 202 for well formed requests; the response
// never reveals whether the address holds an account.
func (c *HTTPController) ForgotPassword(ctx router.Context) error {
	payload := new(ForgotPasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		return c.bindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return c.validationError(ctx, err)
	}

	if err := c.auther.ForgotPassword(ctx.Context(), payload.Email); err != nil {
		return c.authError(ctx, err)
	}

	return ctx.JSON(router.StatusAccepted, map[string]string{
		"status": "reset_requested",
	})
}

// ResetPasswordPayload holds the reset redemption body.
type ResetPasswordPayload struct {
	Email           string `form:"email" json:"email"`
	ResetToken      string `form:"reset_token" json:"reset_token"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will run validation rules
func (r ResetPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.ResetToken, validation.Required, is.UUIDv4),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (c *HTTPController) ResetPassword(ctx router.Context) error {
	payload := new(ResetPasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		return c.bindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return c.validationError(ctx, err)
	}

	result, err := c.auther.ResetPassword(ctx.Context(), ResetPasswordRequest{
		Email:              payload.Email,
		ResetToken:         payload.ResetToken,
		NewPassword:        payload.Password,
		ConfirmNewPassword: payload.ConfirmPassword,
	})
	if err != nil {
		return c.authError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, result)
}

// ChangePasswordPayload holds the authenticated credential change body.
type ChangePasswordPayload struct {
	CurrentPassword string `form:"current_password" json:"current_password"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will run validation rules
func (r ChangePasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (c *HTTPController) ChangePassword(ctx router.Context) error {
	_, accountID, err := c.bearerClaims(ctx)
	if err != nil {
		return c.authError(ctx, err)
	}

	payload := new(ChangePasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		return c.bindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return c.validationError(ctx, err)
	}

	result, err := c.auther.ChangePassword(ctx.Context(), accountID, ChangePasswordRequest{
		CurrentPassword:    payload.CurrentPassword,
		NewPassword:        payload.Password,
		ConfirmNewPassword: payload.ConfirmPassword,
	})
	if err != nil {
		return c.authError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, result)
}

func (c *HTTPController) Me(ctx router.Context) error {
	_, accountID, err := c.bearerClaims(ctx)
	if err != nil {
		return c.authError(ctx, err)
	}

	snapshot, err := c.auther.AccountByID(ctx.Context(), accountID)
	if err != nil {
		return c.authError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, snapshot)
}

func (c *HTTPController) ListAccounts(ctx router.Context) error {
	if _, _, err := c.bearerClaims(ctx); err != nil {
		return c.authError(ctx, err)
	}

	role, ok := ParseRole(ctx.Query("role"))
	if !ok {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error": "unknown role",
		})
	}

	accounts, err := c.auther.AccountsByRole(ctx.Context(), role)
	if err != nil {
		return c.authError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"accounts": accounts,
	})
}

// SetRolePayload is the role assignment body.
type SetRolePayload struct {
	Role string `form:"role" json:"role"`
}

// Validate will run validation rules
func (r SetRolePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Role, validation.Required),
	)
}

func (c *HTTPController) SetAccountRole(ctx router.Context) error {
	_, actorID, err := c.bearerClaims(ctx)
	if err != nil {
		return c.authError(ctx, err)
	}

	accountID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error": "invalid account id",
		})
	}

	payload := new(SetRolePayload)
	if err := ctx.Bind(payload); err != nil {
		return c.bindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return c.validationError(ctx, err)
	}

	role, ok := ParseRole(payload.Role)
	if !ok {
		return c.validationError(ctx, validation.Errors{
			"role": fmt.Errorf("must be one of the known roles"),
		})
	}

	actor := ActorRef{ID: actorID.String(), Type: "user"}

	user, err := c.auther.Lifecycle().SetRole(ctx.Context(), actor, accountID, role)
	if err != nil {
		return c.authError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, user.Snapshot())
}

// SetStatusPayload is the activation toggle body.
type SetStatusPayload struct {
	Active bool `form:"active" json:"active"`
}

func (c *HTTPController) SetAccountStatus(ctx router.Context) error {
	_, actorID, err := c.bearerClaims(ctx)
	if err != nil {
		return c.authError(ctx, err)
	}

	accountID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error": "invalid account id",
		})
	}

	payload := new(SetStatusPayload)
	if err := ctx.Bind(payload); err != nil {
		return c.bindError(ctx, err)
	}

	actor := ActorRef{ID: actorID.String(), Type: "user"}

	found, err := c.auther.Lifecycle().SetActive(ctx.Context(), actor, accountID, payload.Active)
	if err != nil {
		return c.authError(ctx, err)
	}

	if !found {
		return c.authError(ctx, ErrAccountNotFound)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"id":     accountID.String(),
		"active": payload.Active,
	})
}

func (c *HTTPController) bearerClaims(ctx router.Context) (AuthClaims, uuid.UUID, error) {
	token, err := ParseBearerToken(ctx.GetString(router.HeaderAuthorization, ""))
	if err != nil {
		return nil, uuid.Nil, err
	}

	claims, err := c.auther.TokenService().Validate(token)
	if err != nil {
		return nil, uuid.Nil, err
	}

	accountID, err := uuid.Parse(claims.UserID())
	if err != nil {
		return nil, uuid.Nil, ErrTokenMalformed
	}

	return claims, accountID, nil
}

func (c *HTTPController) bindError(ctx router.Context, err error) error {
	c.Logger.Error("auth controller parse payload: ", "error", err)
	return ctx.JSON(router.StatusBadRequest, map[string]any{
		"error": "failed to parse request body",
	})
}

func (c *HTTPController) validationError(ctx router.Context, err error) error {
	c.Logger.Error("auth controller validate payload: ", "error", err)
	return ctx.JSON(router.StatusBadRequest, map[string]any{
		"error":      "validation failed",
		"validation": FormatValidationErrorToMap(err),
	})
}

func (c *HTTPController) authError(ctx router.Context, err error) error {
	if c.Debug {
		fmt.Println("======= AUTH ERROR ======")
		fmt.Println(print.MaybePrettyJSON(map[string]string{"error": err.Error()}))
		fmt.Println("=========================")
	}

	status := StatusFromError(err)
	body := map[string]any{
		"error": err.Error(),
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode != "" {
		body["code"] = richErr.TextCode
	}

	if status == router.StatusInternalServerError {
		// never leak store internals
		body["error"] = "internal server error"
		c.Logger.Error("auth controller internal error: ", "error", err)
	}

	return ctx.JSON(status, body)
}

// StatusFromError maps domain error categories onto HTTP status codes.
func StatusFromError(err error) int {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return router.StatusInternalServerError
	}

	switch richErr.Category {
	case goerrors.CategoryAuth:
		return router.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return router.StatusForbidden
	case goerrors.CategoryNotFound:
		return router.StatusNotFound
	case goerrors.CategoryConflict:
		return router.StatusConflict
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return router.StatusBadRequest
	default:
		return router.StatusInternalServerError
	}
}

// FormatValidationErrorToMap flattens ozzo validation errors for JSON output.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}

	if verrs, ok := err.(validation.Errors); ok {
		for field, ferr := range verrs {
			out[field] = ferr.Error()
		}
		return out
	}

	out["payload"] = err.Error()
	return out
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return fmt.Errorf("values must match")
		}
		return nil
	}
}

// ValidatePhoneNumber checks that a value parses as a valid number for the
// given default region. Empty values pass; pair with validation.Required when
// the field is mandatory.
func ValidatePhoneNumber(region string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s == "" {
			return nil
		}

		num, err := phonenumbers.Parse(s, region)
		if err != nil {
			return fmt.Errorf("invalid phone number")
		}

		if !phonenumbers.IsValidNumber(num) {
			return fmt.Errorf("invalid phone number")
		}

		return nil
	}
}
