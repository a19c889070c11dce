package task

const (
	ProductPageTaskType  = "ProductPageTask"
	ProductRetryTaskType = "ProductRetryTask"
)

type ProductPageTask struct {
	BrandName  string `json:"brand_name"`
	ProductURL string `json:"product_url"`
}

func (t *ProductPageTask) TaskType() string {
	return ProductPageTaskType
}

func (t *ProductPageTask) TaskValue() ([]byte, error) {
	return DefaultTaskValue(t)
}

type ProductRetryTask struct {
	ProductURL   string `json:"product_url"`
	BrandName    string `json:"brand_name"`
	RetryCount   int    `json:"retry_count"`   // Number of times this product has been retried
	Error        string `json:"error"`         // Error message from the original failure
	FailureStage string `json:"failure_stage"` // "fetch" or "save" - which stage failed
}

func (t *ProductRetryTask) TaskType() string {
	return ProductRetryTaskType
}

func (t *ProductRetryTask) TaskValue() ([]byte, error) {
	return DefaultTaskValue(t)
}
