package media

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) Upload(ctx context.Context, localPath string) (Asset, error) {
	args := m.Called(ctx, localPath)
	return args.Get(0).(Asset), args.Error(1)
}
