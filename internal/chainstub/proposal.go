package chainstub

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ChaincodeInvocationSpec is the slice of a Fabric ChaincodeInvocationSpec
// the origin-chaincode branch needs: the name of the chaincode that placed
// this call. A real peer emits this nested inside a protobuf-encoded
// SignedProposal; this module's fake stub signs the same claim as a JWT
// instead of pulling in Fabric's protobuf dependency chain. See DESIGN.md
// for why a JWT claim substitutes for the protobuf envelope here.
type ChaincodeInvocationSpec struct {
	ChaincodeName string `json:"chaincodeName"`
}

type proposalClaims struct {
	jwt.RegisteredClaims
	ChaincodeName string `json:"chaincodeName"`
}

// SignProposal produces the signed-proposal bytes a FakeStub returns from
// GetSignedProposal: a JWT asserting callerChaincode invoked the current
// transaction, signed with key (standing in for the peer's identity MSP
// signature over the real protobuf proposal).
func SignProposal(callerChaincode string, key []byte) ([]byte, error) {
	claims := proposalClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
		ChaincodeName: callerChaincode,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return nil, fmt.Errorf("sign proposal: %w", err)
	}
	return []byte(signed), nil
}

// DecodeInvocationSpec verifies proposal against key and extracts the
// embedded ChaincodeInvocationSpec, the step spec §4.4a calls "decode the
// embedded ChaincodeInvocationSpec".
func DecodeInvocationSpec(proposal []byte, key []byte) (*ChaincodeInvocationSpec, error) {
	var claims proposalClaims
	_, err := jwt.ParseWithClaims(string(proposal), &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid signed proposal: %w", err)
	}
	return &ChaincodeInvocationSpec{ChaincodeName: claims.ChaincodeName}, nil
}
