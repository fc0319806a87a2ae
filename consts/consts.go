package consts

import (
	"encoding/asn1"
	"time"
)

// Certificates are backdated by this much to tolerate clock skew.
const NodesOutOfSyncThreshold = 1 * time.Minute

const PrometheusNamespace = "ekumatrix"

const LockFileName = ".ekumatrix.lock"

var (
	OIDExtensionKeyUsage         = asn1.ObjectIdentifier{2, 5, 29, 15}
	OIDExtensionBasicConstraints = asn1.ObjectIdentifier{2, 5, 29, 19}
	OIDExtensionExtendedKeyUsage = asn1.ObjectIdentifier{2, 5, 29, 37}
)
