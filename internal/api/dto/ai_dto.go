package dto

// GeneratePostRequest carries the seller's draft for AI listing copy.
type GeneratePostRequest struct {
	Title            string `json:"title"`
	Price            int64  `json:"price"`
	Location         string `json:"location"`
	ExtraDescription string `json:"extraDescription"`
	ImageBase64      string `json:"imageBase64"`
	ImageMime        string `json:"imageMime"`
}

// GeneratePostResponse is the suggested copy.
type GeneratePostResponse struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}
