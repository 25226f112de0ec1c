package awssm_test

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/danielpid/dynamic-rag/pkg/fault"
	"github.com/danielpid/dynamic-rag/pkg/secrets"
	"github.com/danielpid/dynamic-rag/pkg/secrets/awssm"
)

type fakeSM struct {
	secrets map[string]*string
	err     error
}

func (f *fakeSM) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.secrets[aws.ToString(in.SecretId)]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("not found")}
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: v}, nil
}

var _ = Describe("Provider", func() {
	var api *fakeSM

	BeforeEach(func() {
		api = &fakeSM{secrets: map[string]*string{
			"dynamic-rag/db_creds": aws.String(`{"username":"rag","password":"pw"}`),
			"binary":               nil,
		}}
	})

	It("parses JSON secret strings", func() {
		v, err := awssm.New(api).GetSecret(context.Background(), "dynamic-rag/db_creds")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(map[string]string{"username": "rag", "password": "pw"}))
	})

	It("maps a missing secret to a configuration error", func() {
		_, err := awssm.New(api).GetSecret(context.Background(), "nope")
		Expect(err).To(MatchError(secrets.ErrSecretNotFound))
		Expect(fault.KindOf(err)).To(Equal(fault.Configuration))
	})

	It("rejects binary secrets", func() {
		_, err := awssm.New(api).GetSecret(context.Background(), "binary")
		Expect(fault.KindOf(err)).To(Equal(fault.Configuration))
	})

	It("wraps other failures", func() {
		api.err = errors.New("throttled")
		_, err := awssm.New(api).GetSecret(context.Background(), "dynamic-rag/db_creds")
		Expect(err).To(MatchError(ContainSubstring("throttled")))
	})
})
