package response

var (
	ErrInvalidRequestFormat = ErrorResponse{
		Status:  "error",
		Error:   "invalid_request",
		Details: "Invalid request format",
	}

	ErrAuthenticationFailed = ErrorResponse{
		Status:  "error",
		Error:   "authentication_failed",
		Details: "Invalid username or password",
	}

	ErrUnauthorized = ErrorResponse{
		Status:  "error",
		Error:   "unauthorized",
		Details: "Valid admin session required",
	}

	ErrPhotoSetNotFound = ErrorResponse{
		Status:  "error",
		Error:   "photoset_not_found",
		Details: "Photo set not found",
	}

	ErrCategoryNotFound = ErrorResponse{
		Status:  "error",
		Error:   "category_not_found",
		Details: "Category not found",
	}

	ErrCategoryExists = ErrorResponse{
		Status:  "error",
		Error:   "category_exists",
		Details: "Category with this name already exists",
	}

	ErrCategoryInUse = ErrorResponse{
		Status:  "error",
		Error:   "category_in_use",
		Details: "Category still has photo sets",
	}

	ErrSlugTaken = ErrorResponse{
		Status:  "error",
		Error:   "slug_taken",
		Details: "Could not allocate a unique slug",
	}

	ErrFileRequired = ErrorResponse{
		Status:  "error",
		Error:   "file_required",
		Details: "Form field \"file\" is required",
	}

	ErrFileTooLarge = ErrorResponse{
		Status:  "error",
		Error:   "file_too_large",
		Details: "File exceeds the upload size limit",
	}

	ErrUnsupportedFile = ErrorResponse{
		Status:  "error",
		Error:   "unsupported_file_type",
		Details: "Only JPEG, PNG, GIF and WebP images are accepted",
	}

	ErrNothingToUpdate = ErrorResponse{
		Status:  "error",
		Error:   "validation_failed",
		Details: "No fields to update",
	}

	ErrFileNotFound = ErrorResponse{
		Status:  "error",
		Error:   "file_not_found",
		Details: "File not found",
	}

	ErrInternal = ErrorResponse{
		Status:  "error",
		Error:   "internal_error",
		Details: "Internal server error",
	}
)
