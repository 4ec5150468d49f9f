package dto

type CreateBranchRequest struct {
	Code string `json:"code" validate:"required,min=3,max=20"`
	Name string `json:"name" validate:"required,min=2,max=120"`
	// Role defaults to "standard"; only one branch may be "central".
	Role string `json:"role" validate:"omitempty,oneof=central standard"`
}

type UpdateBranchRequest struct {
	Name     *string `json:"name"      validate:"omitempty,min=2,max=120"`
	IsActive *bool   `json:"is_active"`
}

type BranchResponse struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}
