// Copyright 2025 AnswerDesk Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package notify defines the notification sinks used to alert chatbot
// owners about background failures, such as a scheduled reindex that did
// not complete. Both sinks are best-effort and independently failable: a
// caller delivering to both must not let one failure suppress the other.
package notify

import "context"

// Notification is the payload of an in-app notification shown on the
// owner's dashboard.
type Notification struct {
	Title     string
	Body      string
	ChatbotID string
	JobID     string
}

// Mailer sends email notifications.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// InApp creates in-app notifications for a dashboard user.
type InApp interface {
	CreateNotification(ctx context.Context, userID string, payload Notification) error
}
