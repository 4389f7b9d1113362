package response

import "kansetsu/internal/lib/pagination"

type Response struct {
	Status  string      `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// PageResponse is a Response with the pagination block of a listing.
type PageResponse struct {
	Status     string          `json:"status"`
	Data       interface{}     `json:"data"`
	Pagination pagination.Page `json:"pagination"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func SuccessResponse(data interface{}) Response {
	return Response{
		Status: "success",
		Data:   data,
	}
}

func SuccessPage(data interface{}, page pagination.Page) PageResponse {
	return PageResponse{
		Status:     "success",
		Data:       data,
		Pagination: page,
	}
}

func ErrorResponseWithDetails(err, details string) ErrorResponse {
	return ErrorResponse{
		Status:  "error",
		Error:   err,
		Details: details,
	}
}
