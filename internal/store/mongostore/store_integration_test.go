//go:build integration

package mongostore_test

import (
	"context"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/store"
	"service-dispatch/internal/store/mongostore"
)

var tcURI string

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := mongodb.Run(ctx, "mongo:7", mongodb.WithReplicaSet("rs0"))
	if err != nil {
		log.Fatalf("failed to start mongodb testcontainer: %v", err)
	}
	uri, err := container.ConnectionString(ctx)
	if err != nil {
		if termErr := container.Terminate(ctx); termErr != nil {
			log.Printf("failed to terminate container after conn string error: %v", termErr)
		}
		log.Fatalf("failed to get connection string from container: %v", err)
	}
	tcURI = uri

	code := m.Run()

	if err := container.Terminate(ctx); err != nil {
		log.Printf("failed to terminate mongodb container: %v", err)
	}
	os.Exit(code)
}

type StoreSuite struct {
	suite.Suite
	store *mongostore.Store
}

func (s *StoreSuite) SetupTest() {
	ctx := context.Background()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(tcURI).SetDirect(true))
	s.Require().NoError(err)

	db := "dispatch_" + domain.NewID()[:8]
	s.store = mongostore.New(client, db, mongostore.WithPollInterval(20*time.Millisecond), mongostore.WithMaxAwait(100*time.Millisecond))
	s.Require().NoError(s.store.EnsureIndexes(ctx))
	s.Require().NoError(s.store.EnsureIndexes(ctx))
}

func (s *StoreSuite) TearDownTest() {
	s.Require().NoError(s.store.Close())
}

func (s *StoreSuite) announcement() domain.Announcement {
	a, err := domain.NewAnnouncement("Restaurant A", "Client Z", 6.5, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.store.InsertAnnouncement(context.Background(), a))
	return a
}

func (s *StoreSuite) TestSelectionUniqueness() {
	ctx := context.Background()
	a := s.announcement()

	var wins, conflicts atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sel, _ := domain.NewSelection(a.ID, domain.NewID(), time.Now())
			err := s.store.InsertSelection(ctx, sel)
			switch {
			case err == nil:
				wins.Add(1)
			case store.IsDuplicateAssignment(err):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	s.EqualValues(1, wins.Load())
	s.EqualValues(9, conflicts.Load())
}

func (s *StoreSuite) TestMarkAssignedAndList() {
	ctx := context.Background()
	a := s.announcement()

	changed, err := s.store.MarkAnnouncementAssigned(ctx, a.ID, "c1")
	s.Require().NoError(err)
	s.False(changed)

	sel, err := domain.NewSelection(a.ID, "c1", time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.store.InsertSelection(ctx, sel))

	changed, err = s.store.MarkAnnouncementAssigned(ctx, a.ID, "c1")
	s.Require().NoError(err)
	s.True(changed)

	got, err := s.store.GetAnnouncement(ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(domain.AnnouncementAssigned, got.Status)
	s.Equal("c1", got.ChosenCourierID)

	assigned, err := s.store.ListAnnouncements(ctx, store.AnnouncementFilter{Status: domain.AnnouncementAssigned})
	s.Require().NoError(err)
	s.Len(assigned, 1)
}

func (s *StoreSuite) TestWatchCandidatures() {
	ctx := context.Background()
	a := s.announcement()

	sub, err := s.store.WatchCandidatures(ctx, a.ID)
	s.Require().NoError(err)
	defer sub.Close()

	other, err := domain.NewCandidature("other", "x", "x", 1, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.store.InsertCandidature(ctx, other))
	mine, err := domain.NewCandidature(a.ID, "c1", "Courier 1", 7, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.store.InsertCandidature(ctx, mine))

	got, ok, err := sub.TryNext(ctx, 5*time.Second)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal(mine.ID, got.ID)
	s.Equal(7, got.ETA)

	ranked, err := s.store.ListCandidatures(ctx, a.ID, 0)
	s.Require().NoError(err)
	s.Len(ranked, 1)
}

func (s *StoreSuite) TestWatchNotifications() {
	ctx := context.Background()
	sub, err := s.store.WatchNotifications(ctx, "c1")
	s.Require().NoError(err)
	defer sub.Close()

	for _, courier := range []string{"c2", "c1"} {
		n, err := domain.NewAssignmentNotification(courier, "a1", time.Now())
		s.Require().NoError(err)
		s.Require().NoError(s.store.InsertNotification(ctx, n))
	}

	got, ok, err := sub.TryNext(ctx, 5*time.Second)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Equal("c1", got.CourierID)
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}
