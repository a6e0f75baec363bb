package shopapi

const (
	// Account endpoints
	endpointLogin    = "/login"
	endpointRegister = "/register"

	// Conversation endpoints
	endpointChatHistory = "/chat_history" // GET
	endpointSaveChat    = "/save_chat"    // POST

	// Catalog endpoints
	endpointSearch   = "/search"   // GET ?q=&category=&min_price=&max_price=
	endpointPurchase = "/purchase" // POST
)

const (
	headerRequestID     = "X-Request-ID"
	headerAuthorization = "Authorization"
)
