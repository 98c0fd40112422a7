// Package secretsmanager contains Secrets Manager resource types.
package secretsmanager

// Secret is a secret container: a logical secret identity with no value of
// its own. Values are attached through SecretVersion and never mutated in
// place.
type Secret struct {
	// Name is the secret name.
	Name string
	// Description is optional documentation for the secret.
	Description string
}

// ResourceType returns the resource type identifier.
func (Secret) ResourceType() string { return "AWS::SecretsManager::Secret" }

// SecretVersion attaches a payload to a secret as its current version.
// A graph must declare exactly one current version per secret.
type SecretVersion struct {
	// Secret references the Secret this version belongs to.
	Secret any
	// SecretString is the payload. Opaque at this layer.
	SecretString string
}

// ResourceType returns the resource type identifier.
func (SecretVersion) ResourceType() string { return "AWS::SecretsManager::SecretVersion" }
