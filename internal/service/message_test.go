package service

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/foundernet/messaging-platform/internal/model"
)

func TestSend(t *testing.T) {
	ctx := context.Background()
	alice := testUser("Alice")
	bob := testUser("Bob")

	newChat := func(t *testing.T, env *testEnv) *model.Chat {
		chat, err := env.conv.StartOrGetPrivateChat(ctx, alice.ID, bob.ID)
		if err != nil {
			t.Fatalf("setup failed: %v", err)
		}
		return chat
	}

	t.Run("TextMessageAdvancesLastMessage", func(t *testing.T) {
		env := newTestEnv(alice, bob)
		chat := newChat(t, env)

		view, err := env.msg.Send(ctx, alice.ID, chat.ID, SendParams{Content: "hello"})
		if err != nil {
			t.Fatalf("Send failed: %v", err)
		}
		if view.Status != model.StatusSent {
			t.Errorf("status = %q, want %q", view.Status, model.StatusSent)
		}
		if view.Type != model.TypeText {
			t.Errorf("type = %q, want %q", view.Type, model.TypeText)
		}
		if view.Sender == nil || view.Sender.Name != "Alice" {
			t.Error("sender not resolved on returned view")
		}

		after, _ := env.chats.FindByID(ctx, chat.ID)
		if after.LastMessage != view.ID {
			t.Errorf("last_message = %s, want %s", after.LastMessage.Hex(), view.ID.Hex())
		}
	})

	t.Run("TextRequiresContent", func(t *testing.T) {
		env := newTestEnv(alice, bob)
		chat := newChat(t, env)
		_, err := env.msg.Send(ctx, alice.ID, chat.ID, SendParams{Type: model.TypeText})
		if !model.IsKind(err, model.KindValidation) {
			t.Errorf("err kind = %v, want validation", model.KindOf(err))
		}
	})

	t.Run("MediaRequiresURL", func(t *testing.T) {
		env := newTestEnv(alice, bob)
		chat := newChat(t, env)
		for _, typ := range []model.MessageType{model.TypeImage, model.TypeVideo, model.TypeFile, model.TypeVoice} {
			_, err := env.msg.Send(ctx, alice.ID, chat.ID, SendParams{Type: typ})
			if !model.IsKind(err, model.KindValidation) {
				t.Errorf("%s without media URL: err kind = %v, want validation", typ, model.KindOf(err))
			}
		}
		if _, err := env.msg.Send(ctx, alice.ID, chat.ID, SendParams{
			Type:     model.TypeImage,
			MediaURL: "https://cdn.example.com/pitch.png",
		}); err != nil {
			t.Errorf("image with media URL failed: %v", err)
		}
	})

	t.Run("UnknownChat", func(t *testing.T) {
		env := newTestEnv(alice, bob)
		_, err := env.msg.Send(ctx, alice.ID, bson.NewObjectID(), SendParams{Content: "hi"})
		if !model.IsKind(err, model.KindNotFound) {
			t.Errorf("err kind = %v, want not_found", model.KindOf(err))
		}
	})

	t.Run("ReplyToOtherChatRejected", func(t *testing.T) {
		carol := testUser("Carol")
		env := newTestEnv(alice, bob, carol)
		chat := newChat(t, env)
		other, err := env.conv.StartOrGetPrivateChat(ctx, alice.ID, carol.ID)
		if err != nil {
			t.Fatalf("setup failed: %v", err)
		}
		foreign, err := env.msg.Send(ctx, alice.ID, other.ID, SendParams{Content: "elsewhere"})
		if err != nil {
			t.Fatalf("setup failed: %v", err)
		}

		_, err = env.msg.Send(ctx, bob.ID, chat.ID, SendParams{Content: "re", ReplyTo: foreign.ID})
		if !model.IsKind(err, model.KindValidation) {
			t.Errorf("err kind = %v, want validation", model.KindOf(err))
		}
	})

	t.Run("DanglingReplyToAccepted", func(t *testing.T) {
		env := newTestEnv(alice, bob)
		chat := newChat(t, env)
		if _, err := env.msg.Send(ctx, alice.ID, chat.ID, SendParams{Content: "re", ReplyTo: bson.NewObjectID()}); err != nil {
			t.Errorf("dangling reply_to rejected: %v", err)
		}
	})

	t.Run("PointerFailureSurfacesInternalWithMessagePersisted", func(t *testing.T) {
		env := newTestEnv(alice, bob)
		chat := newChat(t, env)
		env.chats.failSetLastMessage = true

		_, err := env.msg.Send(ctx, alice.ID, chat.ID, SendParams{Content: "stranded"})
		if !model.IsKind(err, model.KindInternal) {
			t.Fatalf("err kind = %v, want internal", model.KindOf(err))
		}
		// The message itself must remain durable.
		msgs, listErr := env.msg.GetMessages(ctx, chat.ID)
		if listErr != nil {
			t.Fatalf("GetMessages failed: %v", listErr)
		}
		if len(msgs) != 1 || msgs[0].Content != "stranded" {
			t.Errorf("persisted messages = %v, want the stranded message", msgs)
		}
	})
}

func TestGetMessages(t *testing.T) {
	ctx := context.Background()
	alice := testUser("Alice")
	bob := testUser("Bob")

	env := newTestEnv(alice, bob)
	chat, err := env.conv.StartOrGetPrivateChat(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	first, _ := env.msg.Send(ctx, alice.ID, chat.ID, SendParams{Content: "first"})
	second, _ := env.msg.Send(ctx, bob.ID, chat.ID, SendParams{Content: "second"})

	t.Run("NewestFirstWithSenders", func(t *testing.T) {
		msgs, err := env.msg.GetMessages(ctx, chat.ID)
		if err != nil {
			t.Fatalf("GetMessages failed: %v", err)
		}
		if len(msgs) != 2 {
			t.Fatalf("messages = %d, want 2", len(msgs))
		}
		if msgs[0].ID != second.ID || msgs[1].ID != first.ID {
			t.Error("messages not ordered newest first")
		}
		if msgs[0].Sender == nil || msgs[0].Sender.Name != "Bob" {
			t.Error("sender not resolved")
		}
	})

	t.Run("DeletedMessagesExcluded", func(t *testing.T) {
		if err := env.msg.Delete(ctx, second.ID, bob.ID); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		msgs, err := env.msg.GetMessages(ctx, chat.ID)
		if err != nil {
			t.Fatalf("GetMessages failed: %v", err)
		}
		if len(msgs) != 1 || msgs[0].ID != first.ID {
			t.Errorf("messages after delete = %d, want only the first", len(msgs))
		}
	})

	t.Run("ZeroChatID", func(t *testing.T) {
		_, err := env.msg.GetMessages(ctx, bson.ObjectID{})
		if !model.IsKind(err, model.KindValidation) {
			t.Errorf("err kind = %v, want validation", model.KindOf(err))
		}
	})
}

func TestEdit(t *testing.T) {
	ctx := context.Background()
	alice := testUser("Alice")
	bob := testUser("Bob")

	setup := func(t *testing.T) (*testEnv, *model.MessageView) {
		env := newTestEnv(alice, bob)
		chat, err := env.conv.StartOrGetPrivateChat(ctx, alice.ID, bob.ID)
		if err != nil {
			t.Fatalf("setup failed: %v", err)
		}
		msg, err := env.msg.Send(ctx, alice.ID, chat.ID, SendParams{Content: "draft"})
		if err != nil {
			t.Fatalf("setup failed: %v", err)
		}
		return env, msg
	}

	t.Run("SenderEditsAndMessageMarkedEdited", func(t *testing.T) {
		env, msg := setup(t)
		updated, err := env.msg.Edit(ctx, msg.ID, alice.ID, "final")
		if err != nil {
			t.Fatalf("Edit failed: %v", err)
		}
		if updated.Content != "final" || !updated.Edited {
			t.Errorf("edit result: content=%q edited=%v", updated.Content, updated.Edited)
		}
	})

	t.Run("NonSenderRejectedAndMessageUnchanged", func(t *testing.T) {
		env, msg := setup(t)
		_, err := env.msg.Edit(ctx, msg.ID, bob.ID, "tampered")
		if !model.IsKind(err, model.KindAuthorization) {
			t.Fatalf("err kind = %v, want authorization", model.KindOf(err))
		}
		after, _ := env.messages.FindByID(ctx, msg.ID)
		if after.Content != "draft" || after.Edited {
			t.Errorf("message mutated by non-sender: content=%q edited=%v", after.Content, after.Edited)
		}
	})

	t.Run("EmptyContentRejected", func(t *testing.T) {
		env, msg := setup(t)
		_, err := env.msg.Edit(ctx, msg.ID, alice.ID, "")
		if !model.IsKind(err, model.KindValidation) {
			t.Errorf("err kind = %v, want validation", model.KindOf(err))
		}
	})

	t.Run("UnknownMessage", func(t *testing.T) {
		env, _ := setup(t)
		_, err := env.msg.Edit(ctx, bson.NewObjectID(), alice.ID, "x")
		if !model.IsKind(err, model.KindNotFound) {
			t.Errorf("err kind = %v, want not_found", model.KindOf(err))
		}
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	alice := testUser("Alice")
	bob := testUser("Bob")

	env := newTestEnv(alice, bob)
	chat, err := env.conv.StartOrGetPrivateChat(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	msg, err := env.msg.Send(ctx, alice.ID, chat.ID, SendParams{Content: "oops"})
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	t.Run("NonSenderRejected", func(t *testing.T) {
		err := env.msg.Delete(ctx, msg.ID, bob.ID)
		if !model.IsKind(err, model.KindAuthorization) {
			t.Errorf("err kind = %v, want authorization", model.KindOf(err))
		}
		after, _ := env.messages.FindByID(ctx, msg.ID)
		if after.IsDeleted {
			t.Error("message deleted by non-sender")
		}
	})

	t.Run("SenderDeletes", func(t *testing.T) {
		if err := env.msg.Delete(ctx, msg.ID, alice.ID); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		after, _ := env.messages.FindByID(ctx, msg.ID)
		if !after.IsDeleted {
			t.Error("message not marked deleted")
		}
	})
}

func TestReactions(t *testing.T) {
	ctx := context.Background()
	alice := testUser("Alice")
	bob := testUser("Bob")

	env := newTestEnv(alice, bob)
	chat, _ := env.conv.StartOrGetPrivateChat(ctx, alice.ID, bob.ID)
	msg, err := env.msg.Send(ctx, alice.ID, chat.ID, SendParams{Content: "big news"})
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	t.Run("AddAndRemove", func(t *testing.T) {
		if err := env.msg.AddReaction(ctx, msg.ID, bob.ID, "🔥"); err != nil {
			t.Fatalf("AddReaction failed: %v", err)
		}
		if err := env.msg.AddReaction(ctx, msg.ID, bob.ID, "🎉"); err != nil {
			t.Fatalf("AddReaction failed: %v", err)
		}
		after, _ := env.messages.FindByID(ctx, msg.ID)
		if got := after.Reactions[bob.ID.Hex()]; len(got) != 2 || got[0] != "🔥" || got[1] != "🎉" {
			t.Errorf("reactions = %v", got)
		}

		if err := env.msg.RemoveReaction(ctx, msg.ID, bob.ID, "🔥"); err != nil {
			t.Fatalf("RemoveReaction failed: %v", err)
		}
		after, _ = env.messages.FindByID(ctx, msg.ID)
		if got := after.Reactions[bob.ID.Hex()]; len(got) != 1 || got[0] != "🎉" {
			t.Errorf("reactions after removal = %v", got)
		}
	})

	t.Run("EmptyEmojiRejected", func(t *testing.T) {
		if err := env.msg.AddReaction(ctx, msg.ID, bob.ID, ""); !model.IsKind(err, model.KindValidation) {
			t.Errorf("add: err kind = %v, want validation", model.KindOf(err))
		}
		if err := env.msg.RemoveReaction(ctx, msg.ID, bob.ID, ""); !model.IsKind(err, model.KindValidation) {
			t.Errorf("remove: err kind = %v, want validation", model.KindOf(err))
		}
	})
}

func TestAdvanceStatus(t *testing.T) {
	ctx := context.Background()
	alice := testUser("Alice")
	bob := testUser("Bob")

	setup := func(t *testing.T) (*testEnv, *model.MessageView) {
		env := newTestEnv(alice, bob)
		chat, err := env.conv.StartOrGetPrivateChat(ctx, alice.ID, bob.ID)
		if err != nil {
			t.Fatalf("setup failed: %v", err)
		}
		msg, err := env.msg.Send(ctx, alice.ID, chat.ID, SendParams{Content: "ping"})
		if err != nil {
			t.Fatalf("setup failed: %v", err)
		}
		return env, msg
	}

	t.Run("ForwardProgression", func(t *testing.T) {
		env, msg := setup(t)
		updated, err := env.msg.AdvanceStatus(ctx, msg.ID, model.StatusDelivered)
		if err != nil {
			t.Fatalf("AdvanceStatus failed: %v", err)
		}
		if updated.Status != model.StatusDelivered {
			t.Errorf("status = %q, want delivered", updated.Status)
		}
		updated, err = env.msg.AdvanceStatus(ctx, msg.ID, model.StatusRead)
		if err != nil {
			t.Fatalf("AdvanceStatus failed: %v", err)
		}
		if updated.Status != model.StatusRead {
			t.Errorf("status = %q, want read", updated.Status)
		}
	})

	t.Run("BackwardTransitionIsNoOp", func(t *testing.T) {
		env, msg := setup(t)
		if _, err := env.msg.AdvanceStatus(ctx, msg.ID, model.StatusRead); err != nil {
			t.Fatalf("AdvanceStatus failed: %v", err)
		}
		updated, err := env.msg.AdvanceStatus(ctx, msg.ID, model.StatusDelivered)
		if err != nil {
			t.Fatalf("AdvanceStatus failed: %v", err)
		}
		if updated.Status != model.StatusRead {
			t.Errorf("status regressed to %q", updated.Status)
		}
	})

	t.Run("UnknownStatusRejected", func(t *testing.T) {
		env, msg := setup(t)
		_, err := env.msg.AdvanceStatus(ctx, msg.ID, model.Status("archived"))
		if !model.IsKind(err, model.KindValidation) {
			t.Errorf("err kind = %v, want validation", model.KindOf(err))
		}
	})
}
