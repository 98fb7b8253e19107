package security

import "errors"

// ErrInvalidRole 角色既不是 server 也不是 client
var ErrInvalidRole = errors.New("security: invalid role")
