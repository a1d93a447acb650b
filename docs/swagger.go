package docs

import "github.com/swaggo/swag"

// @title           Taskflow API
// @version         1.0
// @description     API for collaborative task boards with realtime sync
// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token

// @tag.name Users
// @tag.description User registration and login

// @tag.name Boards
// @tag.description Board management operations

// @tag.name Tasks
// @tag.description Task management and movement

// Register swagger info
func SwaggerInfo() *swag.Spec {
	spec, _ := swag.GetSwagger(swag.Name).(*swag.Spec)
	return spec
}
