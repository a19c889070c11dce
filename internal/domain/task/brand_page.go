package task

const BrandPageTaskType = "BrandPageTask"

// BrandPageTask asks a worker to list the products of one brand.
type BrandPageTask struct {
	BrandName  string `json:"brand_name"`
	BrandURL   string `json:"brand_url"`
	Index      int    `json:"index"`       // Position in the brand list, used to resume
	RetryCount int    `json:"retry_count"` // Number of failed attempts so far
	Error      string `json:"error,omitempty"`
}

func (t *BrandPageTask) TaskType() string {
	return BrandPageTaskType
}

func (t *BrandPageTask) TaskValue() ([]byte, error) {
	return DefaultTaskValue(t)
}
