package entity

type DeploymentMode string

const (
	LocalMode DeploymentMode = "local"
	CloudMode DeploymentMode = "cloud"
)

func (m DeploymentMode) IsLocal() bool {
	return m == LocalMode
}
