package pgvector

var CredentialHook = credentialHook
