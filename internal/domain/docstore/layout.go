package docstore

// Collection layout. Memberships live in a flat shared collection so the
// guard can snapshot the whole identity→tenant directory in one read;
// everything else is scoped under the owning tenant.
const (
	// MembershipCollection maps identity id → owning tenant.
	MembershipCollection = "memberships"

	// TenantCollection holds one config document per tenant.
	TenantCollection = "tenants"

	// userDataCollection is the per-tenant user record sub-collection.
	userDataCollection = "userData"

	// appDataCollection is the per-tenant application data sub-collection.
	appDataCollection = "appData"

	// defaultCredentialDoc holds the tenant's shared default credential.
	defaultCredentialDoc = "defaultUser"
)

// MembershipRef addresses the membership document for an identity.
func MembershipRef(identityID string) Ref {
	return Ref{Collection: MembershipCollection, ID: identityID}
}

// TenantRef addresses a tenant's config document.
func TenantRef(tenantID string) Ref {
	return Ref{Collection: TenantCollection, ID: tenantID}
}

// UserDataCollection returns the user record collection path for a tenant.
func UserDataCollection(tenantID string) string {
	return TenantCollection + "/" + tenantID + "/" + userDataCollection
}

// UserRecordRef addresses one user record within a tenant.
func UserRecordRef(tenantID, identityID string) Ref {
	return Ref{Collection: UserDataCollection(tenantID), ID: identityID}
}

// DefaultCredentialRef addresses the tenant's default credential document.
func DefaultCredentialRef(tenantID string) Ref {
	return Ref{
		Collection: TenantCollection + "/" + tenantID + "/" + appDataCollection,
		ID:         defaultCredentialDoc,
	}
}

// TenantSubCollection returns the path of a named sub-collection under a
// tenant (used by the replicator destination).
func TenantSubCollection(tenantID, name string) string {
	return TenantCollection + "/" + tenantID + "/" + name
}
