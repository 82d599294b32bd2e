package transform

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"gamcsv/internal/csvio"
)

func TestExplode_OneRowPerPermission(t *testing.T) {
	te := newTestEnv(t)
	in := te.file(t, "in.csv", lines(
		"id,permissions.0.type,permissions.0.role,permissions.1.type,permissions.1.role",
		"F1,user,writer,anyone,reader",
	))

	res, err := ExplodeOptions{Prefix: "permissions"}.Run(context.Background(), te.Env, in, te.path("out.csv"))
	require.NoError(t, err)
	require.Equal(t, Result{RowsIn: 1, RowsOut: 2}, res)
	require.Equal(t, lines(
		"id,type,role",
		"F1,user,writer",
		"F1,anyone,reader",
	), te.read(t, "out.csv"))
}

func TestExplode_ACLPerRowPreset(t *testing.T) {
	te := newTestEnv(t)
	in := te.file(t, "in.csv", lines(
		"id,name,permissions.0.type,permissions.0.role",
		"F1,Doc,user,writer",
	))

	_, err := ACLPerRow().Run(context.Background(), te.Env, in, te.path("out.csv"))
	require.NoError(t, err)
	require.Equal(t, lines(
		"id,name,permission.type,permission.role",
		"F1,Doc,user,writer",
	), te.read(t, "out.csv"))
}

func TestExplode_RowWithoutItems(t *testing.T) {
	input := lines(
		"id,permissions,permissions.0.type,permissions.0.role",
		"F1,1,user,writer",
		"F2,0,,",
	)

	t.Run("dropped by default", func(t *testing.T) {
		te := newTestEnv(t)
		in := te.file(t, "in.csv", input)
		res, err := ExplodeOptions{Prefix: "permissions"}.Run(context.Background(), te.Env, in, te.path("out.csv"))
		require.NoError(t, err)
		require.Equal(t, 1, res.RowsOut)
		require.Equal(t, lines(
			"id,permissions,type,role",
			"F1,1,user,writer",
		), te.read(t, "out.csv"))
	})

	t.Run("kept once with KeepEmpty", func(t *testing.T) {
		te := newTestEnv(t)
		in := te.file(t, "in.csv", input)
		opts := ExplodeOptions{Prefix: "permissions", KeepEmpty: true, CountPerRow: true}
		_, err := opts.Run(context.Background(), te.Env, in, te.path("out.csv"))
		require.NoError(t, err)
		require.Equal(t, lines(
			"id,permissions,type,role",
			"F1,1,user,writer",
			"F2,0,,",
		), te.read(t, "out.csv"))
	})
}

func TestExplode_AttendeePreset(t *testing.T) {
	te := newTestEnv(t)
	in := te.file(t, "in.csv", lines(
		"id,attendees,attendees.0.email,attendees.0.photoLink,attendees.1.email,attendees.1.photoLink",
		"E1,2,a@x.com,p,b@y.com,q",
	))

	_, err := AttendeePerRow(nil, []string{"x.com"}).Run(context.Background(), te.Env, in, te.path("out.csv"))
	require.NoError(t, err)
	require.Equal(t, lines(
		"id,attendee.email",
		"E1,a@x.com",
	), te.read(t, "out.csv"))
}

func TestExplode_Errors(t *testing.T) {
	te := newTestEnv(t)
	empty := te.file(t, "empty.csv", "")

	for _, prefix := range []string{"", "permissions."} {
		_, err := ExplodeOptions{Prefix: prefix}.Run(context.Background(), te.Env, empty, "-")
		require.True(t, IsUsage(err), "prefix %q: %v", prefix, err)
	}

	_, err := ExplodeOptions{Prefix: "permissions"}.Run(context.Background(), te.Env, empty, "-")
	var mc *csvio.MissingColumnError
	require.True(t, errors.As(err, &mc), "got %v", err)
	require.Equal(t, "permissions", mc.Column)
}
