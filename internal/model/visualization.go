package model

type VisualizationStatus string

const (
	VisualizationSuccess VisualizationStatus = "success"
	VisualizationFailed  VisualizationStatus = "failed"
)

// VisualizationKind is one chart the backend can render.
type VisualizationKind struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

var VisualizationKinds = []VisualizationKind{
	{Name: "numerical_features_boxplot", Label: "Numerical Features Boxplot"},
	{Name: "numerical_features_pairplot", Label: "Numerical Features Pairplot"},
	{Name: "numerical_features_violin", Label: "Numerical Features Violin"},
	{Name: "correlation_heatmap", Label: "Correlation between Features"},
	{Name: "categorical_vs_target", Label: "Categorical vs Target"},
	{Name: "feature_importance", Label: "Feature Importance"},
}

// VisualPayload is the encoded image returned by the backend.
type VisualPayload struct {
	ImageData   string `json:"imageData"`
	ContentType string `json:"contentType"`
}

// VisualizationResult is one requested kind. HandleID is set iff Status is
// success, Error iff Status is failed.
type VisualizationResult struct {
	Name     string              `json:"name"`
	Label    string              `json:"label"`
	Status   VisualizationStatus `json:"status"`
	HandleID string              `json:"handleId,omitempty"`
	Error    string              `json:"error,omitempty"`
}
