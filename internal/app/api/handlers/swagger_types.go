package handlers

// Swagger-only response shapes. The real envelope is the generic
// response.APIResponse[T], which swag cannot express directly.

type RespOK struct {
	Code    int    `json:"code" example:"0"`
	Message string `json:"message" example:"ok"`
	Data    any    `json:"data"`
}

type RespError struct {
	Code    int    `json:"code" example:"50000"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}
