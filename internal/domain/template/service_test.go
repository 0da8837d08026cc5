package template_test

import (
	"context"
	"testing"

	"github.com/rpggio/patrol/internal/domain/client"
	"github.com/rpggio/patrol/internal/domain/template"
	"github.com/rpggio/patrol/internal/repository"
	"github.com/rpggio/patrol/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const tenantID = "tenant1"

func TestTemplateService_Create(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TemplateRepository{}
	repo.On("Create", ctx, tenantID, mock.MatchedBy(func(tmpl *template.Template) bool {
		return tmpl.Active && len(tmpl.ClientIDs) == 2 && tmpl.ClientIDs[0] == "a"
	})).Return(nil)

	svc := template.NewService(repo, nil)
	tmpl, err := svc.Create(ctx, tenantID, template.CreateRequest{
		Name:      "Night loop",
		ShiftType: template.ShiftNight,
		ClientIDs: []string{"a", "b"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, tmpl.ID)
}

func TestTemplateService_CreateValidation(t *testing.T) {
	svc := template.NewService(&mocks.TemplateRepository{}, nil)
	ctx := context.Background()

	cases := []template.CreateRequest{
		{Name: "", ShiftType: template.ShiftDay, ClientIDs: []string{"a"}},
		{Name: "x", ShiftType: "evening", ClientIDs: []string{"a"}},
		{Name: "x", ShiftType: template.ShiftDay},
		{Name: "x", ShiftType: template.ShiftDay, ClientIDs: []string{"a", "a"}},
	}
	for _, req := range cases {
		_, err := svc.Create(ctx, tenantID, req)
		require.ErrorIs(t, err, template.ErrInvalidInput)
	}
}

func TestTemplateService_CreateUnknownClient(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TemplateRepository{}
	repo.On("Create", ctx, tenantID, mock.Anything).Return(repository.ErrForeignKeyViolation)

	svc := template.NewService(repo, nil)
	_, err := svc.Create(ctx, tenantID, template.CreateRequest{Name: "x", ShiftType: template.ShiftDay, ClientIDs: []string{"ghost"}})
	require.ErrorIs(t, err, client.ErrClientNotFound)
}

func TestTemplateService_CopyKeepsSourceAndRetires(t *testing.T) {
	ctx := context.Background()
	src := &template.Template{
		ID:        "t1",
		Name:      "Day loop",
		ShiftType: template.ShiftDay,
		Active:    true,
		ClientIDs: []string{"a", "b"},
	}

	repo := &mocks.TemplateRepository{}
	repo.On("Get", ctx, tenantID, "t1").Return(src, nil)
	repo.On("Create", ctx, tenantID, mock.MatchedBy(func(tmpl *template.Template) bool {
		return tmpl.ID != "t1" &&
			tmpl.CopiedFrom != nil && *tmpl.CopiedFrom == "t1" &&
			tmpl.Name == "Day loop" &&
			len(tmpl.ClientIDs) == 3
	})).Return(nil)
	repo.On("Deactivate", ctx, tenantID, "t1").Return(nil)

	svc := template.NewService(repo, nil)
	copied, err := svc.Copy(ctx, tenantID, "t1", template.CopyRequest{
		ClientIDs:    []string{"a", "b", "c"},
		RetireSource: true,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, src.ClientIDs)
	require.Equal(t, []string{"a", "b", "c"}, copied.ClientIDs)
	repo.AssertExpectations(t)
}

func TestTemplateService_CopyMissingSource(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TemplateRepository{}
	repo.On("Get", ctx, tenantID, "nope").Return((*template.Template)(nil), repository.ErrNotFound)

	svc := template.NewService(repo, nil)
	_, err := svc.Copy(ctx, tenantID, "nope", template.CopyRequest{})
	require.ErrorIs(t, err, template.ErrTemplateNotFound)
}
