package internal

import (
	"fedipush-backend/internal/service"
)

func Initialize() {
	// initialize service
	service.Initialize()
}
