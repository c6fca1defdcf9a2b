package web

import (
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/dmitrijs2005/typicaltools/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func TestCreateComment_Sanitized(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)

	resp, _ := c.post("/products/12345/comments/new", url.Values{"text": {"<script>bad</script>hi"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/products/12345/comments", resp.Header.Get("Location"))

	require.Len(t, env.comments.comments, 1)
	stored := env.comments.comments[1]
	assert.Equal(t, "hi", stored.Text)
	assert.Equal(t, c.cookie("tt_session"), stored.SessionID)

	_, body := c.get("/products/12345/comments")
	assert.Contains(t, body, "<p>hi</p>")
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "/comments/1/edit")
}

func TestCreateComment_Rejects(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)

	resp, _ := c.post("/products/12345/comments/new", url.Values{"text": {"<b></b>"}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, _ = c.post("/products/999/comments/new", url.Values{"text": {"hello"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/products", resp.Header.Get("Location"))

	assert.Empty(t, env.comments.comments)
}

func TestEditComment_WithinWindow(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)

	c.post("/products/12345/comments/new", url.Values{"text": {"fish &amp; chips"}})

	resp, body := c.get("/comments/1/edit")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "fish &amp; chips")
	assert.NotContains(t, body, "&amp;amp;")

	env.clock.Advance(10 * time.Minute)
	resp, _ = c.post("/comments/1/edit", url.Values{"text": {"updated"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "updated", env.comments.comments[1].Text)
}

func TestEditComment_ExpiredWindow(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)

	c.post("/products/12345/comments/new", url.Values{"text": {"original"}})
	env.clock.Advance(10*time.Minute + time.Second)

	resp, _ := c.get("/comments/1/edit")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/products/12345/comments", resp.Header.Get("Location"))

	_, body := c.get("/products/12345/comments")
	assert.Contains(t, body, msgEditExpired)
	assert.NotContains(t, body, "/comments/1/edit")

	resp, _ = c.post("/comments/1/edit", url.Values{"text": {"late"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "original", env.comments.comments[1].Text)

	resp, _ = c.post("/comments/1/delete", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	_, body = c.get("/products/12345/comments")
	assert.Contains(t, body, msgDeleteExpired)
	assert.Contains(t, env.comments.comments, int64(1))
}

func TestDeleteComment_OtherSessionDenied(t *testing.T) {
	env := newTestEnv(t)
	author := env.client(t)
	author.post("/products/12345/comments/new", url.Values{"text": {"mine"}})

	other := env.client(t)
	resp, _ := other.get("/comments/1/delete")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp, _ = other.post("/comments/1/delete", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Contains(t, env.comments.comments, int64(1))

	resp, body := author.get("/comments/1/delete")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "mine")
	resp, _ = author.post("/comments/1/delete", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.NotContains(t, env.comments.comments, int64(1))
}

func TestAdminModeratesAnyComment(t *testing.T) {
	env := newTestEnv(t)
	env.comments.comments[4] = &models.Comment{
		ID: 4, ProductID: 12345, Text: "Total garbage.", CreatedAt: testStart.Add(-24 * time.Hour), SessionID: "session-004",
	}

	admin := env.client(t)
	admin.login("admin", "Password_1")

	_, body := admin.get("/comments")
	assert.Contains(t, body, "/comments/4/edit")

	resp, _ := admin.post("/comments/4/edit", url.Values{"text": {"[removed]"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "[removed]", env.comments.comments[4].Text)

	resp, _ = admin.post("/comments/4/delete", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Empty(t, env.comments.comments)
}

func TestComment_NotFound(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)

	resp, _ := c.get("/comments/77/edit")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/comments", resp.Header.Get("Location"))

	resp, _ = c.get("/products/999/comments")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/products", resp.Header.Get("Location"))
}
