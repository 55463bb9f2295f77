package model

// AdminStats は管理画面の集計値。
type AdminStats struct {
	TotalWishes int         `json:"total_wishes"`
	TotalLikes  int         `json:"total_likes"`
	WishesToday int         `json:"wishes_today"`
	ByTag       map[Tag]int `json:"by_tag"`
}

// LoginRequest は POST /admin/login のリクエストボディ。
type LoginRequest struct {
	Password string `json:"password"`
}

// LoginResult は管理者ログインのレスポンス。
type LoginResult struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message"`
}

// ErrorBody はバックエンドのエラーレスポンス { "detail": "..." }。
type ErrorBody struct {
	Detail string `json:"detail"`
}

const (
	// ProfileKeyClientID はクライアント識別子の保存キー。
	ProfileKeyClientID = "lunar_client_id"
	// ProfileKeyAdminToken は管理者トークンの保存キー。
	ProfileKeyAdminToken = "admin_token"
)
