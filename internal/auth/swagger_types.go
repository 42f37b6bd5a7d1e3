package auth

// LoginRequest is the request body for POST /auth/login.
type LoginRequest struct {
	AccessKey string `json:"access_key" example:"CGPT-7K2Q-X9ZD"`
}

// RefreshRequest is the request body for POST /auth/refresh and /auth/logout.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" example:"dGhpcyBpcyBhIHJlZnJl..."`
}

// StatusResponse is returned by GET /auth/status.
type StatusResponse struct {
	Database string `json:"database" example:"connected"`
	Version  string `json:"version" example:"v0.1.0"`
}

// CreateUserRequest is the request body for POST /users.
type CreateUserRequest struct {
	Username string `json:"username" example:"neo"`
	AIName   string `json:"ai_name,omitempty" example:"CentralGPT"`
	DevName  string `json:"dev_name,omitempty" example:"XdpzQ"`
}

// CreateUserResponse carries the new user and its one-time access key.
type CreateUserResponse struct {
	User      User   `json:"user"`
	AccessKey string `json:"access_key" example:"CGPT-7K2Q-X9ZD"`
}

// AccessKeyResponse is returned by POST /users/{id}/key.
type AccessKeyResponse struct {
	AccessKey string `json:"access_key" example:"CGPT-7K2Q-X9ZD"`
}

// ProblemDetail is the RFC 7807 body of auth errors.
type ProblemDetail struct {
	Type   string `json:"type" example:"https://centralgpt.dev/problems/auth-error"`
	Title  string `json:"title" example:"Unauthorized"`
	Status int    `json:"status" example:"401"`
	Detail string `json:"detail" example:"invalid or revoked access key"`
}
