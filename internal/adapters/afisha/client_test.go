package afisha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/egorkasprigorca/afisha-bot/internal/domain"
)

type pagePayload struct {
	Paging struct {
		Total int `json:"total"`
	} `json:"paging"`
	Data []struct {
		Event domain.Item `json:"event"`
	} `json:"data"`
}

func catalogHandler(t *testing.T, total int, offsets *[]int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t.Helper()
		if r.URL.Path != "/events/actual" {
			t.Fatalf("неожиданный путь %s", r.URL.Path)
		}
		offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
		if err != nil {
			t.Fatalf("offset не число: %v", err)
		}
		limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
		if err != nil {
			t.Fatalf("limit не число: %v", err)
		}
		*offsets = append(*offsets, offset)

		var payload pagePayload
		payload.Paging.Total = total
		for i := offset; i < offset+limit && i < total; i++ {
			payload.Data = append(payload.Data, struct {
				Event domain.Item `json:"event"`
			}{Event: domain.Item{
				ID:    fmt.Sprintf("e%d", i),
				URL:   fmt.Sprintf("moscow/cinema/e%d", i),
				Title: fmt.Sprintf("Событие %d", i),
			}})
		}
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func TestFetchItemsWalksPagination(t *testing.T) {
	var offsets []int
	srv := httptest.NewServer(catalogHandler(t, 15, &offsets))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, PageSize: 12})
	items, err := client.FetchItems(context.Background(), "moscow", "cinema", 3)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(items) != 15 {
		t.Fatalf("ожидали 15 событий, получили %d", len(items))
	}
	if items[0].ID != "e0" || items[14].ID != "e14" {
		t.Fatalf("порядок каталога нарушен: %s ... %s", items[0].ID, items[14].ID)
	}
	if len(offsets) != 2 || offsets[0] != 0 || offsets[1] != 12 {
		t.Fatalf("offset должен двигаться на размер страницы, получили %v", offsets)
	}
}

func TestFetchItemsPassesQueryParams(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"city":   r.URL.Query().Get("city"),
			"tag":    r.URL.Query().Get("tag"),
			"period": r.URL.Query().Get("period"),
		}
		var payload pagePayload
		payload.Paging.Total = 0
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, PageSize: 12})
	items, err := client.FetchItems(context.Background(), "moscow", "concert", 7)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("пустой каталог даёт пустой срез, получили %d", len(items))
	}
	if gotQuery["city"] != "moscow" || gotQuery["tag"] != "concert" || gotQuery["period"] != "7" {
		t.Fatalf("параметры запроса собраны неверно: %v", gotQuery)
	}
}

func TestFetchItemsServerErrorIsCatalogUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, PageSize: 12})
	_, err := client.FetchItems(context.Background(), "moscow", "cinema", 3)
	if !errors.Is(err, domain.ErrCatalogUnavailable) {
		t.Fatalf("ожидали ErrCatalogUnavailable, получили %v", err)
	}
}

func TestFetchItemsStopsOnShortPage(t *testing.T) {
	// Каталог обещает больше, чем отдаёт: пустая страница обрывает выборку.
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var payload pagePayload
		payload.Paging.Total = 100
		if calls == 1 {
			payload.Data = append(payload.Data, struct {
				Event domain.Item `json:"event"`
			}{Event: domain.Item{ID: "e0", Title: "Событие"}})
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, PageSize: 12})
	items, err := client.FetchItems(context.Background(), "moscow", "cinema", 3)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("ожидали одно событие, получили %d", len(items))
	}
	if calls != 2 {
		t.Fatalf("выборка должна остановиться на пустой странице, запросов %d", calls)
	}
}
