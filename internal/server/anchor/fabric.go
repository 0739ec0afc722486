package anchor

import (
	"context"
	"crypto/x509"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/hyperledger/fabric-gateway/pkg/client"
	"github.com/hyperledger/fabric-gateway/pkg/identity"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/medchain/medchain-server/internal/common"
)

// FabricConfig carries the connection settings for a Fabric gateway peer.
type FabricConfig struct {
	Endpoint    string
	GatewayPeer string
	MSPID       string
	CertPath    string
	KeyDirPath  string
	TLSCertPath string
	Channel     string
	Chaincode   string
	Timeout     time.Duration
}

// contractAPI is the slice of the gateway contract used here; a seam for tests.
type contractAPI interface {
	SubmitTransaction(name string, args ...string) ([]byte, error)
	EvaluateTransaction(name string, args ...string) ([]byte, error)
}

// FabricAdapter anchors hashes through a Hyperledger Fabric chaincode. The
// chaincode's AnchorHash transaction records the hash and returns the ledger
// transaction id; GetAnchor returns that id for any submitter, or an empty
// payload when the hash is unknown.
type FabricAdapter struct {
	contract contractAPI
	timeout  time.Duration

	conn *grpc.ClientConn
	gw   *client.Gateway
}

// NewFabricAdapter dials the gateway peer and binds to the anchoring
// chaincode.
func NewFabricAdapter(cfg FabricConfig) (*FabricAdapter, error) {
	conn, err := newGrpcConnection(cfg)
	if err != nil {
		return nil, fmt.Errorf("fabric connection: %w", err)
	}

	id, err := newIdentity(cfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("fabric identity: %w", err)
	}

	sign, err := newSign(cfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("fabric signer: %w", err)
	}

	gw, err := client.Connect(
		id,
		client.WithSign(sign),
		client.WithClientConnection(conn),
		client.WithEvaluateTimeout(5*time.Second),
		client.WithEndorseTimeout(15*time.Second),
		client.WithSubmitTimeout(5*time.Second),
		client.WithCommitStatusTimeout(1*time.Minute),
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("fabric gateway: %w", err)
	}

	contract := gw.GetNetwork(cfg.Channel).GetContract(cfg.Chaincode)

	return &FabricAdapter{contract: contract, timeout: cfg.Timeout, conn: conn, gw: gw}, nil
}

// Submit anchors the hash. SubmitTransaction blocks until the transaction is
// committed to the ledger, so a successful return is never pending.
func (a *FabricAdapter) Submit(ctx context.Context, hash string) (string, bool, error) {
	out, err := a.contract.SubmitTransaction("AnchorHash", hash)
	if err != nil {
		return "", false, fmt.Errorf("%w: submit: %v", common.ErrAnchorFault, err)
	}
	return string(out), false, nil
}

// IsAnchored queries the anchoring chaincode for the hash.
func (a *FabricAdapter) IsAnchored(ctx context.Context, hash string) (Status, error) {
	out, err := a.contract.EvaluateTransaction("GetAnchor", hash)
	if err != nil {
		return Status{}, fmt.Errorf("%w: evaluate: %v", common.ErrAnchorFault, err)
	}
	if len(out) == 0 {
		return Status{}, nil
	}
	return Status{Anchored: true, TxRef: string(out)}, nil
}

// Close tears down the gateway and its grpc connection.
func (a *FabricAdapter) Close() error {
	if a.gw != nil {
		a.gw.Close()
	}
	if a.conn != nil {
		return a.conn.Close()
	}
	return nil
}

// newGrpcConnection creates a gRPC connection to the gateway peer. The same
// connection could be shared by all gateway connections to this endpoint.
func newGrpcConnection(cfg FabricConfig) (*grpc.ClientConn, error) {
	certificate, err := loadCertificate(cfg.TLSCertPath)
	if err != nil {
		return nil, err
	}

	certPool := x509.NewCertPool()
	certPool.AddCert(certificate)
	creds := credentials.NewClientTLSFromCert(certPool, cfg.GatewayPeer)

	return grpc.NewClient(cfg.Endpoint, grpc.WithTransportCredentials(creds))
}

// newIdentity creates a client identity for the gateway connection using an
// X.509 certificate.
func newIdentity(cfg FabricConfig) (*identity.X509Identity, error) {
	certificate, err := loadCertificate(cfg.CertPath)
	if err != nil {
		return nil, err
	}
	return identity.NewX509Identity(cfg.MSPID, certificate)
}

// newSign creates a signing function from the first private key found in the
// MSP keystore directory.
func newSign(cfg FabricConfig) (identity.Sign, error) {
	files, err := os.ReadDir(cfg.KeyDirPath)
	if err != nil {
		return nil, fmt.Errorf("read keystore %s: %w", cfg.KeyDirPath, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no keys in keystore %s", cfg.KeyDirPath)
	}

	keyPEM, err := os.ReadFile(path.Join(cfg.KeyDirPath, files[0].Name()))
	if err != nil {
		return nil, err
	}

	privateKey, err := identity.PrivateKeyFromPEM(keyPEM)
	if err != nil {
		return nil, err
	}
	return identity.NewPrivateKeySign(privateKey)
}

func loadCertificate(filename string) (*x509.Certificate, error) {
	certificatePEM, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read certificate %s: %w", filename, err)
	}
	return identity.CertificateFromPEM(certificatePEM)
}
