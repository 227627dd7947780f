package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"gorm.io/gorm"

	"github.com/parley-chat/parley/internal/chat"
	"github.com/parley-chat/parley/internal/config"
	"github.com/parley-chat/parley/internal/db"
	"github.com/parley-chat/parley/internal/email"
	"github.com/parley-chat/parley/internal/models"
	"github.com/parley-chat/parley/internal/store/rabbitmq"
)

func workerConcurrency() int {
	v := os.Getenv("WORKER_CONCURRENCY")
	if v == "" {
		return 2
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 2
	}
	if n > 50 {
		return 50
	}
	return n
}

func main() {
	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)
	repo := chat.NewRepo(gdb)

	smtp := email.SMTPConfig{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		User: cfg.SMTPUser,
		Pass: cfg.SMTPPass,
		From: cfg.SMTPFrom,
	}

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("rabbit dial: %v", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("rabbit channel: %v", err)
	}
	defer ch.Close()

	if err := rabbitmq.DeclareTopology(ch, cfg.RabbitQueue); err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	//  strict concurrency control
	concurrency := workerConcurrency()

	if err := ch.Qos(concurrency, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("notifier started, queue=%s concurrency=%d", cfg.RabbitQueue, concurrency)

	// worker pool
	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				var n rabbitmq.Notification
				if err := json.Unmarshal(d.Body, &n); err != nil || n.JobID == "" {
					log.Printf("worker=%d bad message: %v", workerID, err)
					_ = d.Nack(false, false)
					continue
				}

				start := time.Now()
				if err := handleJob(ctx, gdb, repo, smtp, n); err != nil {
					log.Printf("worker=%d job %s failed cost=%s err=%v", workerID, n.JobID, time.Since(start), err)
					_ = d.Nack(false, false)
					continue
				}

				if err := d.Ack(false); err != nil {
					log.Printf("worker=%d ack failed job=%s err=%v", workerID, n.JobID, err)
				}
			}
		}(i)
	}

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			log.Printf("notifier shutting down")
			close(jobs)
			wg.Wait()
			return

		case d, ok := <-msgs:
			if !ok {
				log.Printf("delivery channel closed")
				time.Sleep(1 * time.Second)
				continue
			}
			jobs <- d
		}
	}
}

func handleJob(ctx context.Context, gdb *gorm.DB, repo *chat.Repo, smtp email.SMTPConfig, n rabbitmq.Notification) error {
	_ = repo.UpdateJobStatusRunning(ctx, n.JobID)

	// the row is the source of truth for status; the payload addresses the mail
	j, err := repo.GetJobByID(ctx, n.JobID)
	if err != nil {
		return err
	}
	if j.Status == chat.JobSent {
		// redelivered after a late ack
		return nil
	}

	var recipient models.User
	if err := gdb.WithContext(ctx).Where("user_id = ?", n.RecipientID).First(&recipient).Error; err != nil {
		_ = repo.MarkJobFailed(ctx, n.JobID, "recipient lookup: "+err.Error())
		return err
	}

	var msg chat.Message
	if err := gdb.WithContext(ctx).First(&msg, n.MessageID).Error; err != nil {
		_ = repo.MarkJobFailed(ctx, n.JobID, "message lookup: "+err.Error())
		return err
	}

	var sender models.User
	senderName := "Someone"
	if err := gdb.WithContext(ctx).Where("user_id = ?", msg.SenderID).First(&sender).Error; err == nil {
		senderName = sender.DisplayName
	}

	subject := fmt.Sprintf("New message from %s", senderName)
	body := "Hello " + recipient.DisplayName + ",\n\n" +
		senderName + " sent you a message on Parley:\n\n" +
		"    " + msg.Text + "\n\n" +
		"Open the app to reply.\n\n" +
		"Parley\n"
	if err := email.SendText(smtp, recipient.Email, subject, body); err != nil {
		_ = repo.MarkJobFailed(ctx, n.JobID, err.Error())
		return err
	}

	return repo.MarkJobSent(ctx, n.JobID)
}
