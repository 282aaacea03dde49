package domain

// FaceEmbedding is the vector returned by the recognition space. It is never stored.
type FaceEmbedding []float64

type EmbeddingResult struct {
	Embedding FaceEmbedding `json:"embedding"`
}

type FaceLookupRequest struct {
	Embedding FaceEmbedding `json:"embedding"`
}

type FaceMatch struct {
	ID BookingID `json:"id"`
}

const (
	MsgFaceProcessFailed = "Failed to process image."
	MsgFaceSubmitFailed  = "Failed to submit embeddings."
)
