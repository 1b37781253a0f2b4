package auth

// UserClaims is the identity attached to every authenticated request.
type UserClaims interface {
	UserID() string
	Role() string
	Source() string
	HasPermission(action string) bool
}

// JWTClaims are claims recovered from a bearer token issued by the
// identity service.
type JWTClaims struct {
	UserUUID  string
	RoleValue string
}

func (c *JWTClaims) UserID() string { return c.UserUUID }
func (c *JWTClaims) Role() string {
	return c.RoleValue
}
func (c *JWTClaims) Source() string { return "JWT" }
func (c *JWTClaims) HasPermission(action string) bool {
	if action == "admin" {
		return c.RoleValue == "admin"
	}
	return true
}

// ServiceClaims represent an internal caller (reconcile job, queue
// worker) acting on behalf of a user.
type ServiceClaims struct {
	UserUUID string
}

func (c *ServiceClaims) UserID() string            { return c.UserUUID }
func (c *ServiceClaims) Role() string              { return "service" }
func (c *ServiceClaims) Source() string            { return "INTERNAL" }
func (c *ServiceClaims) HasPermission(string) bool { return true }
