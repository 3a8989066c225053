package api

// Authentication and account endpoints
const (
	AuthRegister        = "/auth/register"
	AuthRegisterConfirm = "/auth/register/confirm"
	AuthLogin           = "/auth/login"
	AuthRefresh         = "/auth/refresh"
	AuthPasswordReset   = "/auth/password/reset"
	AuthPasswordSet     = "/auth/password/set"
	AuthPasswordChange  = "/auth/password/change"
	AuthActivate        = "/auth/activate"
	AuthProfile         = "/auth/profile"
	AuthAccount         = "/auth/account"
	AuthMe              = "/auth/me"

	UsersList   = "/users"
	UsersDetail = "/users/{id}"
)

// PublicEndpoints defines endpoints that don't require authentication
var PublicEndpoints = map[string]bool{
	AuthRegister:        true,
	AuthRegisterConfirm: true,
	AuthLogin:           true,
	AuthRefresh:         true,
	AuthPasswordReset:   true,
	AuthPasswordSet:     true,
	AuthActivate:        true,
}
