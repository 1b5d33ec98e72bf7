// internal/service/publishing/application/pipeline/credential.go
package pipeline

import (
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/codes"
)

// CredentialHandler 解密频道的投递凭据。解密是纯 CPU 操作，
// 失败（密文损坏/密钥不符）按普通失败走重试计数。
type CredentialHandler struct {
	NextHandler
}

func (h *CredentialHandler) Handle(pubCtx *PublishContext) error {
	_, span := pubCtx.Tracer.Start(pubCtx.Ctx, "pipeline.DecryptCredential")
	defer span.End()

	plaintext, err := pubCtx.Credentials.Decrypt(pubCtx.Channel.EncryptedCredential)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "credential decrypt failed")
		return errors.Wrap(err, "decrypt channel credential")
	}
	pubCtx.PlaintextCredential = plaintext

	return h.executeNext(pubCtx)
}
